package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/internal/domain"
)

func TestAppRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	db, err := NewFromDSN(testDB.ConnStr)
	require.NoError(t, err)
	defer db.Close()

	repo := NewAppRepository(db)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		testDB.TruncateTables(t)

		app := domain.NewApp("user_1", "Acme", "acme", "issue tracker")
		require.NoError(t, repo.Create(ctx, app))

		got, err := repo.GetByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, app.Name, got.Name)
		assert.Equal(t, app.Slug, got.Slug)
		assert.Equal(t, domain.AppStatusActive, got.Status)

		bySlug, err := repo.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, app.ID, bySlug.ID)
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		testDB.TruncateTables(t)

		require.NoError(t, repo.Create(ctx, domain.NewApp("user_1", "Acme", "acme", "")))
		err := repo.Create(ctx, domain.NewApp("user_2", "Acme Two", "acme", ""))
		require.Error(t, err)
		assert.True(t, domain.IsSentinelError(err, domain.ErrAlreadyExistsVal))
	})

	t.Run("get by id not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, domain.IsSentinelError(err, domain.ErrNotFoundVal))
	})

	t.Run("list by user", func(t *testing.T) {
		testDB.TruncateTables(t)

		require.NoError(t, repo.Create(ctx, domain.NewApp("user_1", "One", "one", "")))
		require.NoError(t, repo.Create(ctx, domain.NewApp("user_1", "Two", "two", "")))
		require.NoError(t, repo.Create(ctx, domain.NewApp("user_2", "Other", "other", "")))

		apps, err := repo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		assert.Len(t, apps, 2)

		count, err := repo.CountByUserID(ctx, "user_1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("get active skips paused", func(t *testing.T) {
		testDB.TruncateTables(t)

		active := domain.NewApp("user_1", "Active", "active-app", "")
		require.NoError(t, repo.Create(ctx, active))

		paused := domain.NewApp("user_1", "Paused", "paused-app", "")
		paused.Status = domain.AppStatusPaused
		require.NoError(t, repo.Create(ctx, paused))

		apps, err := repo.GetActive(ctx)
		require.NoError(t, err)
		require.Len(t, apps, 1)
		assert.Equal(t, active.ID, apps[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		testDB.TruncateTables(t)

		app := domain.NewApp("user_1", "Acme", "acme", "")
		require.NoError(t, repo.Create(ctx, app))

		app.Name = "Acme Renamed"
		app.Status = domain.AppStatusPaused
		require.NoError(t, repo.Update(ctx, app))

		got, err := repo.GetByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Renamed", got.Name)
		assert.Equal(t, domain.AppStatusPaused, got.Status)
	})

	t.Run("delete", func(t *testing.T) {
		testDB.TruncateTables(t)

		app := domain.NewApp("user_1", "Acme", "acme", "")
		require.NoError(t, repo.Create(ctx, app))
		require.NoError(t, repo.Delete(ctx, app.ID))

		_, err := repo.GetByID(ctx, app.ID)
		assert.True(t, domain.IsSentinelError(err, domain.ErrNotFoundVal))

		err = repo.Delete(ctx, app.ID)
		assert.True(t, domain.IsSentinelError(err, domain.ErrNotFoundVal))
	})
}
