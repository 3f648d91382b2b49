package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/geowatch/geowatch/internal/domain"
)

// ResultRepository stores monitoring results in PostgreSQL. Results
// are a latest-snapshot store: each (keyword, provider) pair holds the
// outcome of its most recent check.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// resultRow represents the database row structure
type resultRow struct {
	ID          uuid.UUID `db:"id"`
	AppID       uuid.UUID `db:"app_id"`
	KeywordID   uuid.UUID `db:"keyword_id"`
	Provider    string    `db:"provider"`
	QueryText   string    `db:"query_text"`
	Response    string    `db:"response"`
	Mentioned   bool      `db:"mentioned"`
	Sentiment   string    `db:"sentiment"`
	Citations   []byte    `db:"citations"`
	Links       []byte    `db:"links"`
	MentionText *string   `db:"mention_text"`
	ArtifactURL *string   `db:"artifact_url"`
	ErrorText   *string   `db:"error_text"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *resultRow) toDomain() (*domain.MonitoringResult, error) {
	result := &domain.MonitoringResult{
		ID:          r.ID,
		AppID:       r.AppID,
		KeywordID:   r.KeywordID,
		Provider:    domain.Provider(r.Provider),
		QueryText:   r.QueryText,
		Response:    r.Response,
		Mentioned:   r.Mentioned,
		Sentiment:   domain.Sentiment(r.Sentiment),
		MentionText: r.MentionText,
		ArtifactURL: r.ArtifactURL,
		ErrorText:   r.ErrorText,
		CreatedAt:   r.CreatedAt,
	}

	if len(r.Citations) > 0 {
		if err := json.Unmarshal(r.Citations, &result.Citations); err != nil {
			return nil, err
		}
	}
	if len(r.Links) > 0 {
		if err := json.Unmarshal(r.Links, &result.Links); err != nil {
			return nil, err
		}
	}

	return result, nil
}

const insertResultQuery = `
	INSERT INTO monitoring_results
		(id, app_id, keyword_id, provider, query_text, response, mentioned,
		 sentiment, citations, links, mention_text, artifact_url, error_text, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// Replace atomically swaps the stored snapshot for one (keyword,
// provider) pair: prior rows are deleted and the new results inserted
// in a single transaction, so readers never see a partial state.
func (r *ResultRepository) Replace(ctx context.Context, keywordID uuid.UUID, provider domain.Provider, results []*domain.MonitoringResult) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM monitoring_results WHERE keyword_id = $1 AND provider = $2`,
			keywordID, provider,
		)
		if err != nil {
			return err
		}

		for _, result := range results {
			citations, err := json.Marshal(result.Citations)
			if err != nil {
				return err
			}
			links, err := json.Marshal(result.Links)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, insertResultQuery,
				result.ID,
				result.AppID,
				result.KeywordID,
				result.Provider,
				result.QueryText,
				result.Response,
				result.Mentioned,
				result.Sentiment,
				citations,
				links,
				result.MentionText,
				result.ArtifactURL,
				result.ErrorText,
				result.CreatedAt,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.NotFoundError("keyword", result.KeywordID)
				}
				return err
			}
		}

		return nil
	})
}

// GetByID retrieves a single result
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MonitoringResult, error) {
	query := `
		SELECT id, app_id, keyword_id, provider, query_text, response, mentioned,
		       sentiment, citations, links, mention_text, artifact_url, error_text, created_at
		FROM monitoring_results
		WHERE id = $1
	`

	var row resultRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("result", id)
		}
		return nil, err
	}

	return row.toDomain()
}

// ResultFilter narrows a result listing
type ResultFilter struct {
	KeywordID *uuid.UUID
	Provider  *domain.Provider
	Mentioned *bool
}

// GetByAppID retrieves the stored results for an app, newest first
func (r *ResultRepository) GetByAppID(ctx context.Context, appID uuid.UUID, filter ResultFilter) ([]*domain.MonitoringResult, error) {
	query := `
		SELECT id, app_id, keyword_id, provider, query_text, response, mentioned,
		       sentiment, citations, links, mention_text, artifact_url, error_text, created_at
		FROM monitoring_results
		WHERE app_id = $1
	`
	args := []any{appID}

	if filter.KeywordID != nil {
		args = append(args, *filter.KeywordID)
		query += ` AND keyword_id = $` + strconv.Itoa(len(args))
	}
	if filter.Provider != nil {
		args = append(args, *filter.Provider)
		query += ` AND provider = $` + strconv.Itoa(len(args))
	}
	if filter.Mentioned != nil {
		args = append(args, *filter.Mentioned)
		query += ` AND mentioned = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	results := make([]*domain.MonitoringResult, len(rows))
	for i, row := range rows {
		result, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		results[i] = result
	}

	return results, nil
}

// CountMentionsByAppID counts stored results and mentions for an app
func (r *ResultRepository) CountMentionsByAppID(ctx context.Context, appID uuid.UUID) (total int, mentioned int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE mentioned)
		FROM monitoring_results
		WHERE app_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, appID)
	if err := row.Scan(&total, &mentioned); err != nil {
		return 0, 0, err
	}
	return total, mentioned, nil
}
