package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bulletin_scraper/internal/domain"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 50
)

const itemColumns = `id, content, title, ai_headline, is_feedback, is_donation, is_from_student,
	has_specific_targeting, category, date, year_groups, attachments, metadata, scraped_at, created_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type itemRow struct {
	ID                   int64     `db:"id"`
	Content              string    `db:"content"`
	Title                string    `db:"title"`
	AIHeadline           *string   `db:"ai_headline"`
	IsFeedback           bool      `db:"is_feedback"`
	IsDonation           bool      `db:"is_donation"`
	IsFromStudent        bool      `db:"is_from_student"`
	HasSpecificTargeting bool      `db:"has_specific_targeting"`
	Category             string    `db:"category"`
	Date                 *string   `db:"date"`
	YearGroups           *string   `db:"year_groups"`
	Attachments          string    `db:"attachments"`
	Metadata             string    `db:"metadata"`
	ScrapedAt            time.Time `db:"scraped_at"`
	CreatedAt            time.Time `db:"created_at"`
}

func (r itemRow) toDomain() (domain.BulletinItem, error) {
	item := domain.BulletinItem{
		ID: r.ID,
		ClassifiedItem: domain.ClassifiedItem{
			Content:              r.Content,
			Title:                r.Title,
			AIHeadline:           r.AIHeadline,
			IsFeedback:           r.IsFeedback,
			IsDonation:           r.IsDonation,
			IsFromStudent:        r.IsFromStudent,
			HasSpecificTargeting: r.HasSpecificTargeting,
			Category:             domain.Category(r.Category),
			Date:                 r.Date,
			YearGroups:           r.YearGroups,
			ScrapedAt:            r.ScrapedAt,
		},
		CreatedAt: r.CreatedAt,
	}

	if err := json.Unmarshal([]byte(r.Attachments), &item.Attachments); err != nil {
		return domain.BulletinItem{}, fmt.Errorf("decode attachments of item %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Metadata), &item.Metadata); err != nil {
		return domain.BulletinItem{}, fmt.Errorf("decode metadata of item %d: %w", r.ID, err)
	}
	return item, nil
}

func toDomainItems(rows []itemRow) ([]domain.BulletinItem, error) {
	items := make([]domain.BulletinItem, 0, len(rows))
	for _, r := range rows {
		item, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Create inserts item and returns its id. Runs inside the context transaction
// when there is one.
func (s *ItemStore) Create(ctx context.Context, item *domain.ClassifiedItem) (int64, error) {
	attachments := item.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return 0, fmt.Errorf("encode attachments: %w", err)
	}
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO bulletin_items (
			content, title, ai_headline, is_feedback, is_donation, is_from_student,
			has_specific_targeting, category, date, year_groups, attachments, metadata, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id`

	var id int64
	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		item.Content,
		item.Title,
		item.AIHeadline,
		item.IsFeedback,
		item.IsDonation,
		item.IsFromStudent,
		item.HasSpecificTargeting,
		string(item.Category),
		item.Date,
		item.YearGroups,
		string(attachmentsJSON),
		string(metadataJSON),
		item.ScrapedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// FindByContent returns the oldest item whose content equals content
// exactly, or nil.
func (s *ItemStore) FindByContent(ctx context.Context, content string) (*domain.BulletinItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM bulletin_items
		WHERE md5(content) = md5($1) AND content = $1
		ORDER BY id
		LIMIT 1`

	var row itemRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Recent returns up to limit items, newest first.
func (s *ItemStore) Recent(ctx context.Context, limit int) ([]domain.BulletinItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM bulletin_items
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	var rows []itemRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, limit); err != nil {
		return nil, err
	}
	return toDomainItems(rows)
}

// ListOldestFirst returns every stored item ordered by id.
func (s *ItemStore) ListOldestFirst(ctx context.Context) ([]domain.BulletinItem, error) {
	query := `SELECT ` + itemColumns + ` FROM bulletin_items ORDER BY id`

	var rows []itemRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, err
	}
	return toDomainItems(rows)
}

func (s *ItemStore) Get(ctx context.Context, id int64) (*domain.BulletinItem, error) {
	query := `SELECT ` + itemColumns + ` FROM bulletin_items WHERE id = $1`

	var row itemRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the items with the given ids and reports how many rows went.
func (s *ItemStore) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM bulletin_items WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns one page of items matching filter, newest first.
func (s *ItemStore) List(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error) {
	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	where := filterConditions(filter)
	exec := GetExecutor(ctx, s.db)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("bulletin_items").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, countArgs...); err != nil {
		return nil, err
	}

	query, args, err := psql.Select(itemColumns).
		From("bulletin_items").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []itemRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	items, err := toDomainItems(rows)
	if err != nil {
		return nil, err
	}

	return &domain.ItemPage{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern using the
// default backslash escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func filterConditions(filter domain.ItemFilter) sq.And {
	where := sq.And{}

	if len(filter.Categories) > 0 {
		categories := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			categories = append(categories, string(c))
		}
		where = append(where, sq.Eq{"category": categories})
	}
	// items with no year group apply to everyone
	if filter.YearGroup != "" {
		where = append(where, sq.Or{
			sq.Eq{"year_groups": nil},
			sq.Expr("? = ANY(string_to_array(replace(year_groups, ' ', ''), ','))", filter.YearGroup),
		})
	}
	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		where = append(where, sq.Expr("(content ILIKE ? OR title ILIKE ?)", pattern, pattern))
	}
	if filter.ExcludeFeedback {
		where = append(where, sq.Eq{"is_feedback": false})
	}
	if filter.ExcludeDonations {
		where = append(where, sq.Eq{"is_donation": false})
	}

	return where
}

// Stats aggregates counts over all items; Recent counts items created at or
// after since.
func (s *ItemStore) Stats(ctx context.Context, since time.Time) (*domain.ItemStats, error) {
	exec := GetExecutor(ctx, s.db)

	var totals struct {
		Total    int `db:"total"`
		Recent   int `db:"recent"`
		Feedback int `db:"feedback"`
		Donation int `db:"donation"`
	}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE created_at >= $1) AS recent,
			COUNT(*) FILTER (WHERE is_feedback) AS feedback,
			COUNT(*) FILTER (WHERE is_donation) AS donation
		FROM bulletin_items`
	if err := sqlx.GetContext(ctx, exec, &totals, query, since); err != nil {
		return nil, err
	}

	var buckets []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, exec, &buckets,
		"SELECT category, COUNT(*) AS count FROM bulletin_items GROUP BY category",
	); err != nil {
		return nil, err
	}

	stats := &domain.ItemStats{
		Total:      totals.Total,
		Recent:     totals.Recent,
		Feedback:   totals.Feedback,
		Donation:   totals.Donation,
		ByCategory: make(map[domain.Category]int, len(buckets)),
		Since:      since,
	}
	for _, b := range buckets {
		stats.ByCategory[domain.Category(b.Category)] = b.Count
	}
	return stats, nil
}
