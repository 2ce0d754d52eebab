package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"bulletin_scraper/internal/domain"
)

const DefaultRunLimit = 20

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Record appends a finished run. Runs are written outside the pipeline
// transaction so failed runs are logged too.
func (s *RunStore) Record(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO scrape_runs (
			run_id, status, error, scraped, new, skipped_duplicate, failed, started_at, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id`

	return s.db.QueryRowContext(ctx, query,
		run.RunID,
		run.Status,
		run.Error,
		run.Scraped,
		run.New,
		run.SkippedDuplicate,
		run.Failed,
		run.StartedAt,
		run.DurationMillis,
	).Scan(&run.ID)
}

// Latest returns up to limit runs, most recent first.
func (s *RunStore) Latest(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	query := `
		SELECT id, run_id, status, error, scraped, new, skipped_duplicate, failed, started_at, duration_ms
		FROM scrape_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	runs := []domain.RunRecord{}
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}
