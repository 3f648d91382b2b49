package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/geowatch/geowatch/internal/domain"
)

// KeywordRepository stores tracked keywords in PostgreSQL
type KeywordRepository struct {
	db *DB
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db *DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// keywordRow represents the database row structure
type keywordRow struct {
	ID            uuid.UUID  `db:"id"`
	AppID         uuid.UUID  `db:"app_id"`
	Keyword       string     `db:"keyword"`
	Status        string     `db:"status"`
	LastCheckedAt *time.Time `db:"last_checked_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (r *keywordRow) toDomain() *domain.Keyword {
	return &domain.Keyword{
		ID:            r.ID,
		AppID:         r.AppID,
		Keyword:       r.Keyword,
		Status:        domain.KeywordStatus(r.Status),
		LastCheckedAt: r.LastCheckedAt,
		CreatedAt:     r.CreatedAt,
	}
}

// Create inserts a new keyword
func (r *KeywordRepository) Create(ctx context.Context, keyword *domain.Keyword) error {
	query := `
		INSERT INTO keywords (id, app_id, keyword, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		keyword.ID,
		keyword.AppID,
		keyword.Keyword,
		keyword.Status,
		keyword.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.AlreadyExistsError("keyword", "keyword", keyword.Keyword)
		}
		if isForeignKeyViolation(err) {
			return domain.NotFoundError("app", keyword.AppID)
		}
		return err
	}

	return nil
}

// GetByID retrieves a keyword by ID
func (r *KeywordRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Keyword, error) {
	query := `
		SELECT id, app_id, keyword, status, last_checked_at, created_at
		FROM keywords
		WHERE id = $1
	`

	var row keywordRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("keyword", id)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// GetByAppID retrieves all keywords for an app
func (r *KeywordRepository) GetByAppID(ctx context.Context, appID uuid.UUID) ([]*domain.Keyword, error) {
	query := `
		SELECT id, app_id, keyword, status, last_checked_at, created_at
		FROM keywords
		WHERE app_id = $1
		ORDER BY created_at ASC
	`

	var rows []keywordRow
	if err := r.db.SelectContext(ctx, &rows, query, appID); err != nil {
		return nil, err
	}

	keywords := make([]*domain.Keyword, len(rows))
	for i, row := range rows {
		keywords[i] = row.toDomain()
	}

	return keywords, nil
}

// GetActiveByAppID retrieves only the keywords being monitored
func (r *KeywordRepository) GetActiveByAppID(ctx context.Context, appID uuid.UUID) ([]*domain.Keyword, error) {
	query := `
		SELECT id, app_id, keyword, status, last_checked_at, created_at
		FROM keywords
		WHERE app_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	var rows []keywordRow
	if err := r.db.SelectContext(ctx, &rows, query, appID, domain.KeywordStatusActive); err != nil {
		return nil, err
	}

	keywords := make([]*domain.Keyword, len(rows))
	for i, row := range rows {
		keywords[i] = row.toDomain()
	}

	return keywords, nil
}

// CountByAppID counts keywords on an app, for plan limit checks
func (r *KeywordRepository) CountByAppID(ctx context.Context, appID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM keywords WHERE app_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, appID); err != nil {
		return 0, err
	}
	return count, nil
}

// TouchLastChecked records that a keyword was just queried
func (r *KeywordRepository) TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE keywords SET last_checked_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("keyword", id)
	}

	return nil
}

// Delete removes a keyword and its results
func (r *KeywordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("keyword", id)
	}

	return nil
}
