//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bulletin_scraper/internal/domain"
	"bulletin_scraper/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_bulletin_items.up.sql"),
			filepath.Join(migrationsPath, "002_create_scrape_runs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM bulletin_items")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM scrape_runs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func newItem(content string, category domain.Category) *domain.ClassifiedItem {
	return &domain.ClassifiedItem{
		Content:   content,
		Title:     content,
		Category:  category,
		ScrapedAt: time.Now().Truncate(time.Microsecond),
	}
}

func (s *PostgresIntegrationSuite) mustCreate(store *ItemStore, item *domain.ClassifiedItem) int64 {
	id, err := store.Create(s.ctx, item)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) TestItemStore_CreateAndGet() {
	store := NewItemStore(s.db)

	item := &domain.ClassifiedItem{
		Content:              "Canteen menu for 12/03/2025: pasta, salad and fruit.",
		Title:                "Canteen menu for 12/03/2025: pasta, salad and fruit...",
		AIHeadline:           utils.Ptr("Pasta Day In The Canteen"),
		IsFromStudent:        true,
		HasSpecificTargeting: true,
		Category:             domain.CategoryFood,
		Date:                 utils.Ptr("12/03/2025"),
		YearGroups:           utils.Ptr("9,10"),
		Attachments:          []domain.Attachment{{Name: "Menu PDF", URL: "https://example.com/files/menu.pdf"}},
		Metadata:             domain.Metadata{PostedInfo: utils.Ptr("Targeting: All Students")},
		ScrapedAt:            time.Now().Truncate(time.Microsecond),
	}

	id := s.mustCreate(store, item)
	s.Greater(id, int64(0))

	got, err := store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)

	s.Equal(id, got.ID)
	s.Equal(item.Content, got.Content)
	s.Equal(domain.CategoryFood, got.Category)
	s.Equal("Pasta Day In The Canteen", *got.AIHeadline)
	s.Equal("12/03/2025", *got.Date)
	s.Equal("9,10", *got.YearGroups)
	s.True(got.IsFromStudent)
	s.False(got.IsFeedback)
	s.Equal(item.Attachments, got.Attachments)
	s.Equal("Targeting: All Students", *got.Metadata.PostedInfo)
	s.WithinDuration(item.ScrapedAt, got.ScrapedAt, time.Millisecond)
	s.False(got.CreatedAt.IsZero())
}

func (s *PostgresIntegrationSuite) TestItemStore_CreateWithoutAttachments() {
	store := NewItemStore(s.db)

	id := s.mustCreate(store, newItem("Chess club meets on Tuesday", domain.CategoryClubs))

	got, err := store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(got.Attachments)
	s.Nil(got.Metadata.PostedInfo)
	s.Nil(got.AIHeadline)
}

func (s *PostgresIntegrationSuite) TestItemStore_GetMissing() {
	got, err := NewItemStore(s.db).Get(s.ctx, 424242)
	s.NoError(err)
	s.Nil(got)
}

func (s *PostgresIntegrationSuite) TestItemStore_FindByContent() {
	store := NewItemStore(s.db)
	id := s.mustCreate(store, newItem("Sports day: Friday!", domain.CategorySports))

	found, err := store.FindByContent(s.ctx, "Sports day: Friday!")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(id, found.ID)

	found, err = store.FindByContent(s.ctx, "sports day friday")
	s.NoError(err)
	s.Nil(found)
}

func (s *PostgresIntegrationSuite) TestItemStore_RecentNewestFirst() {
	store := NewItemStore(s.db)
	first := s.mustCreate(store, newItem("first", domain.CategoryGeneral))
	second := s.mustCreate(store, newItem("second", domain.CategoryGeneral))
	third := s.mustCreate(store, newItem("third", domain.CategoryGeneral))

	recent, err := store.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(third, recent[0].ID)
	s.Equal(second, recent[1].ID)

	all, err := store.ListOldestFirst(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(first, all[0].ID)
	s.Equal(third, all[2].ID)
}

func (s *PostgresIntegrationSuite) TestItemStore_Delete() {
	store := NewItemStore(s.db)
	a := s.mustCreate(store, newItem("a", domain.CategoryGeneral))
	b := s.mustCreate(store, newItem("b", domain.CategoryGeneral))
	c := s.mustCreate(store, newItem("c", domain.CategoryGeneral))

	n, err := store.Delete(s.ctx, []int64{a, c, 999999})
	s.NoError(err)
	s.Equal(int64(2), n)

	n, err = store.Delete(s.ctx, nil)
	s.NoError(err)
	s.Zero(n)

	all, err := store.ListOldestFirst(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(b, all[0].ID)
}

func (s *PostgresIntegrationSuite) TestItemStore_ListFilters() {
	store := NewItemStore(s.db)

	trials := newItem("Year 9 basketball trials on Monday", domain.CategorySports)
	trials.YearGroups = utils.Ptr("9")
	s.mustCreate(store, trials)

	survey := newItem("Please fill in the canteen survey", domain.CategoryFood)
	survey.IsFeedback = true
	s.mustCreate(store, survey)

	drive := newItem("Donate books to the library", domain.CategoryGeneral)
	drive.IsDonation = true
	drive.YearGroups = utils.Ptr("10, 11")
	s.mustCreate(store, drive)

	exams := newItem("Year 10 mock exams timetable", domain.CategoryAcademic)
	exams.YearGroups = utils.Ptr("10")
	s.mustCreate(store, exams)

	tests := []struct {
		name   string
		filter domain.ItemFilter
		want   []string
	}{
		{"no filter", domain.ItemFilter{}, []string{exams.Content, drive.Content, survey.Content, trials.Content}},
		{"categories", domain.ItemFilter{Categories: []domain.Category{domain.CategorySports, domain.CategoryFood}}, []string{survey.Content, trials.Content}},
		{"year group includes untargeted", domain.ItemFilter{YearGroup: "10"}, []string{exams.Content, drive.Content, survey.Content}},
		{"keyword", domain.ItemFilter{Keyword: "CANTEEN"}, []string{survey.Content}},
		{"keyword wildcard is literal", domain.ItemFilter{Keyword: "%"}, []string{}},
		{"keyword underscore is literal", domain.ItemFilter{Keyword: "Year_9"}, []string{}},
		{"exclude feedback and donations", domain.ItemFilter{ExcludeFeedback: true, ExcludeDonations: true}, []string{exams.Content, trials.Content}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			page, err := store.List(s.ctx, tt.filter)
			s.Require().NoError(err)
			s.Equal(len(tt.want), page.Total)

			got := make([]string, 0, len(page.Items))
			for _, item := range page.Items {
				got = append(got, item.Content)
			}
			s.Equal(tt.want, got)
		})
	}
}

func (s *PostgresIntegrationSuite) TestItemStore_ListPaging() {
	store := NewItemStore(s.db)
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		s.mustCreate(store, newItem(c, domain.CategoryGeneral))
	}

	page, err := store.List(s.ctx, domain.ItemFilter{Page: 2, PerPage: 2})
	s.Require().NoError(err)
	s.Equal(5, page.Total)
	s.Equal(3, page.Pages())
	s.Require().Len(page.Items, 2)
	s.Equal("three", page.Items[0].Content)
	s.Equal("two", page.Items[1].Content)

	page, err = store.List(s.ctx, domain.ItemFilter{PerPage: 500})
	s.Require().NoError(err)
	s.Equal(MaxPerPage, page.PerPage)
	s.Equal(1, page.Page)
}

func (s *PostgresIntegrationSuite) TestItemStore_Stats() {
	store := NewItemStore(s.db)

	feedback := newItem("Fill in the survey", domain.CategoryGeneral)
	feedback.IsFeedback = true
	s.mustCreate(store, feedback)

	donation := newItem("Donate food", domain.CategoryFood)
	donation.IsDonation = true
	s.mustCreate(store, donation)

	s.mustCreate(store, newItem("Sports day", domain.CategorySports))

	old := s.mustCreate(store, newItem("Old notice", domain.CategorySports))
	_, err := s.db.ExecContext(s.ctx,
		"UPDATE bulletin_items SET created_at = NOW() - INTERVAL '30 days' WHERE id = $1", old)
	s.Require().NoError(err)

	stats, err := store.Stats(s.ctx, time.Now().Add(-7*24*time.Hour))
	s.Require().NoError(err)

	s.Equal(4, stats.Total)
	s.Equal(3, stats.Recent)
	s.Equal(1, stats.Feedback)
	s.Equal(1, stats.Donation)
	s.Equal(2, stats.ByCategory[domain.CategorySports])
	s.Equal(1, stats.ByCategory[domain.CategoryFood])
	s.Equal(1, stats.ByCategory[domain.CategoryGeneral])
}

func (s *PostgresIntegrationSuite) TestRunStore_RecordAndLatest() {
	store := NewRunStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	older := &domain.RunRecord{
		RunID:     "5f8b8a51-3c1e-4d1c-9a55-0d6f3b0c2a01",
		Status:    domain.RunStatusSucceeded,
		Scraped:   10,
		New:       4,
		StartedAt: now.Add(-time.Hour),
	}
	s.Require().NoError(store.Record(s.ctx, older))
	s.Greater(older.ID, int64(0))

	newer := &domain.RunRecord{
		RunID:          "5f8b8a51-3c1e-4d1c-9a55-0d6f3b0c2a02",
		Status:         domain.RunStatusFailed,
		Error:          utils.Ptr("transport GET: connection refused"),
		StartedAt:      now,
		DurationMillis: 1500,
	}
	s.Require().NoError(store.Record(s.ctx, newer))

	runs, err := store.Latest(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)

	s.Equal(newer.RunID, runs[0].RunID)
	s.Equal(domain.RunStatusFailed, runs[0].Status)
	s.Equal("transport GET: connection refused", *runs[0].Error)
	s.Equal(int64(1500), runs[0].DurationMillis)
	s.Equal(older.RunID, runs[1].RunID)
	s.Equal(4, runs[1].New)
	s.Nil(runs[1].Error)
}

func (s *PostgresIntegrationSuite) TestRunStore_LatestEmpty() {
	runs, err := NewRunStore(s.db).Latest(s.ctx, 0)
	s.NoError(err)
	s.NotNil(runs)
	s.Empty(runs)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewItemStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := store.Create(ctx, newItem("Transaction item", domain.CategoryGeneral))
		return err
	})
	s.NoError(err)

	found, err := store.FindByContent(s.ctx, "Transaction item")
	s.NoError(err)
	s.NotNil(found)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewItemStore(s.db)
	s.mustCreate(store, newItem("Pre-existing", domain.CategoryGeneral))

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := store.Create(ctx, newItem("Should rollback", domain.CategoryGeneral)); err != nil {
			return err
		}

		// visible inside the transaction
		found, err := store.FindByContent(ctx, "Should rollback")
		if err != nil {
			return err
		}
		s.NotNil(found)

		return context.Canceled
	})
	s.ErrorIs(err, context.Canceled)

	found, err := store.FindByContent(s.ctx, "Should rollback")
	s.NoError(err)
	s.Nil(found)

	found, err = store.FindByContent(s.ctx, "Pre-existing")
	s.NoError(err)
	s.NotNil(found)
}

func (s *PostgresIntegrationSuite) TestTransaction_SavepointRollsBackOnlyItsWrites() {
	tm := NewTransactionManager(s.db)
	store := NewItemStore(s.db)
	boom := errors.New("boom")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		s.NoError(tm.WithSavepoint(ctx, func(ctx context.Context) error {
			_, err := store.Create(ctx, newItem("kept", domain.CategoryGeneral))
			return err
		}))

		err := tm.WithSavepoint(ctx, func(ctx context.Context) error {
			if _, err := store.Create(ctx, newItem("discarded", domain.CategoryGeneral)); err != nil {
				return err
			}
			return boom
		})
		s.ErrorIs(err, boom)

		// a failed statement is undone by the savepoint too
		err = tm.WithSavepoint(ctx, func(ctx context.Context) error {
			_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
				"INSERT INTO bulletin_items (content, title, category, scraped_at) VALUES ('x', 'x', 'nonsense', NOW())")
			return err
		})
		s.Error(err)

		_, err = store.Create(ctx, newItem("after failure", domain.CategoryGeneral))
		return err
	})
	s.Require().NoError(err)

	all, err := store.ListOldestFirst(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("kept", all[0].Content)
	s.Equal("after failure", all[1].Content)
}

func (s *PostgresIntegrationSuite) TestTransaction_SavepointWithoutTransaction() {
	tm := NewTransactionManager(s.db)
	store := NewItemStore(s.db)

	err := tm.WithSavepoint(s.ctx, func(ctx context.Context) error {
		s.NotNil(GetTxFromContext(ctx))
		_, err := store.Create(ctx, newItem("standalone", domain.CategoryGeneral))
		return err
	})
	s.NoError(err)

	found, err := store.FindByContent(s.ctx, "standalone")
	s.NoError(err)
	s.NotNil(found)
}
