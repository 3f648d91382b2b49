package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/geowatch/geowatch/internal/domain"
)

// AppRepository stores monitored apps in PostgreSQL
type AppRepository struct {
	db *DB
}

// NewAppRepository creates a new app repository
func NewAppRepository(db *DB) *AppRepository {
	return &AppRepository{db: db}
}

// appRow represents the database row structure
type appRow struct {
	ID          uuid.UUID `db:"id"`
	UserID      string    `db:"user_id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	LogoURL     string    `db:"logo_url"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *appRow) toDomain() *domain.App {
	return &domain.App{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		LogoURL:     r.LogoURL,
		Status:      domain.AppStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Create inserts a new app
func (r *AppRepository) Create(ctx context.Context, app *domain.App) error {
	query := `
		INSERT INTO apps (id, user_id, name, slug, description, logo_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.UserID,
		app.Name,
		app.Slug,
		app.Description,
		app.LogoURL,
		app.Status,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.AlreadyExistsError("app", "slug", app.Slug)
		}
		return err
	}

	return nil
}

// GetByID retrieves an app by ID
func (r *AppRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.App, error) {
	query := `
		SELECT id, user_id, name, slug, description, logo_url, status, created_at, updated_at
		FROM apps
		WHERE id = $1
	`

	var row appRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("app", id)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// GetBySlug retrieves an app by its slug
func (r *AppRepository) GetBySlug(ctx context.Context, slug string) (*domain.App, error) {
	query := `
		SELECT id, user_id, name, slug, description, logo_url, status, created_at, updated_at
		FROM apps
		WHERE slug = $1
	`

	var row appRow
	if err := r.db.GetContext(ctx, &row, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("app", slug)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// GetByUserID retrieves all apps owned by a user, newest first
func (r *AppRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.App, error) {
	query := `
		SELECT id, user_id, name, slug, description, logo_url, status, created_at, updated_at
		FROM apps
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var rows []appRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	apps := make([]*domain.App, len(rows))
	for i, row := range rows {
		apps[i] = row.toDomain()
	}

	return apps, nil
}

// GetActive retrieves all active apps across users, for scheduled runs
func (r *AppRepository) GetActive(ctx context.Context) ([]*domain.App, error) {
	query := `
		SELECT id, user_id, name, slug, description, logo_url, status, created_at, updated_at
		FROM apps
		WHERE status = $1
		ORDER BY created_at ASC
	`

	var rows []appRow
	if err := r.db.SelectContext(ctx, &rows, query, domain.AppStatusActive); err != nil {
		return nil, err
	}

	apps := make([]*domain.App, len(rows))
	for i, row := range rows {
		apps[i] = row.toDomain()
	}

	return apps, nil
}

// CountByUserID counts apps owned by a user, for plan limit checks
func (r *AppRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM apps WHERE user_id = $1 AND status != $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, domain.AppStatusArchived); err != nil {
		return 0, err
	}
	return count, nil
}

// Update updates an existing app
func (r *AppRepository) Update(ctx context.Context, app *domain.App) error {
	query := `
		UPDATE apps
		SET name = $2, description = $3, logo_url = $4, status = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.Name,
		app.Description,
		app.LogoURL,
		app.Status,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("app", app.ID)
	}

	return nil
}

// Delete removes an app and, through cascading constraints, its
// keywords and results
func (r *AppRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM apps WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("app", id)
	}

	return nil
}
