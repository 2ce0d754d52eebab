package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bulletin_scraper/internal/classify"
	"bulletin_scraper/internal/config"
	"bulletin_scraper/internal/dedupe"
	"bulletin_scraper/internal/domain"
	"bulletin_scraper/internal/headline"
)

// RunRequest parameterizes one pipeline run. A zero MaxItems uses the
// configured default.
type RunRequest struct {
	MaxItems          int
	GenerateHeadlines bool
}

// PipelineService runs fetch, classify, deduplicate and persist for one
// source. headlines, seen, publisher, indexer and runs are optional.
type PipelineService struct {
	source    Source
	items     ItemStore
	runs      RunStore
	txManager TransactionManager
	headlines HeadlineGenerator
	seen      SeenCache
	publisher Publisher
	indexer   Indexer
	dedupe    *dedupe.Deduplicator
	logger    *slog.Logger
	config    config.PipelineConfig
}

func NewPipelineService(
	source Source,
	items ItemStore,
	runs RunStore,
	txManager TransactionManager,
	headlines HeadlineGenerator,
	seen SeenCache,
	publisher Publisher,
	indexer Indexer,
	logger *slog.Logger,
	cfg config.PipelineConfig,
	dedupeCfg config.DedupeConfig,
) *PipelineService {
	return &PipelineService{
		source:    source,
		items:     items,
		runs:      runs,
		txManager: txManager,
		headlines: headlines,
		seen:      seen,
		publisher: publisher,
		indexer:   indexer,
		dedupe:    dedupe.New(items, dedupe.Config{Window: dedupeCfg.Window, Threshold: dedupeCfg.Threshold}),
		logger:    logger.With("source", source.ID()),
		config:    cfg,
	}
}

// batch is the outcome of the persist transaction.
type batch struct {
	created []domain.BulletinItem
	// fingerprints of items known to be stored after commit
	known []string
}

// Run executes one pipeline pass. On failure nothing of the batch is kept
// and the returned stats are nil.
func (s *PipelineService) Run(ctx context.Context, req RunRequest) (*domain.RunStats, error) {
	if req.MaxItems <= 0 {
		req.MaxItems = s.config.MaxItems
	}

	stats := &domain.RunStats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With("run_id", stats.RunID)

	logger.Info("starting run",
		"source_name", s.source.Name(),
		"max_items", req.MaxItems,
		"generate_headlines", req.GenerateHeadlines,
		"on_storage_error", s.config.OnStorageError,
	)

	b, err := s.run(ctx, logger, req, stats)
	if err != nil {
		stats.Duration = time.Since(stats.StartedAt)
		s.record(ctx, logger, stats, err)
		logger.Error("run failed", "error", err, "duration", stats.Duration)
		return nil, err
	}

	s.afterCommit(ctx, logger, b, stats)

	stats.Duration = time.Since(stats.StartedAt)
	s.record(ctx, logger, stats, nil)

	logger.Info("run completed",
		"scraped", stats.Scraped,
		"new", stats.New,
		"skipped_duplicate", stats.SkippedDuplicate,
		"failed", stats.Failed,
		"published", stats.Published,
		"indexed", stats.Indexed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *PipelineService) run(ctx context.Context, logger *slog.Logger, req RunRequest, stats *domain.RunStats) (*batch, error) {
	raw, err := s.source.FetchItems(ctx, req.MaxItems)
	if err != nil {
		return nil, err
	}

	stats.Scraped = len(raw)
	logger.Info("fetched items from source", "count", len(raw))

	headlineCtx, cancel := s.headlineContext(ctx)
	items := s.classifyAll(headlineCtx, raw, req.GenerateHeadlines)
	cancel()

	var b *batch
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		b = &batch{}
		stats.New, stats.SkippedDuplicate, stats.Failed = 0, 0, 0

		for i := range items {
			if err := txCtx.Err(); err != nil {
				return err
			}
			if err := s.persist(txCtx, logger, &items[i], b, stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asStorageError("commit batch", err)
	}

	return b, nil
}

// persist stores one item unless it is a duplicate. It returns an error only
// when the whole batch must be rolled back.
func (s *PipelineService) persist(ctx context.Context, logger *slog.Logger, item *domain.ClassifiedItem, b *batch, stats *domain.RunStats) error {
	fingerprint := dedupe.Fingerprint(item.Content)

	if s.seen != nil {
		seen, err := s.seen.Seen(ctx, fingerprint)
		if err != nil {
			logger.Warn("seen cache lookup failed", "error", err)
		} else if seen {
			stats.SkippedDuplicate++
			logger.Debug("skipping seen item", "title", item.Title)
			return nil
		}
	}

	var (
		duplicate bool
		id        int64
	)
	write := func(ctx context.Context) error {
		decision, err := s.dedupe.Check(ctx, item.Content)
		if err != nil {
			return &domain.StorageError{Op: "duplicate lookup", Err: err}
		}
		if decision.Duplicate {
			duplicate = true
			logger.Debug("skipping duplicate item",
				"title", item.Title,
				"match_id", decision.MatchID,
				"reason", decision.Reason,
			)
			return nil
		}

		id, err = s.items.Create(ctx, item)
		if err != nil {
			return &domain.StorageError{Op: "create item", Err: err}
		}
		return nil
	}

	if s.config.OnStorageError != config.OnStorageErrorContinue {
		if err := write(ctx); err != nil {
			return err
		}
	} else if err := s.txManager.WithSavepoint(ctx, write); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Failed++
		logger.Warn("failed to store item, continuing", "title", item.Title, "error", err)
		return nil
	}

	b.known = append(b.known, fingerprint)
	if duplicate {
		stats.SkippedDuplicate++
		return nil
	}

	stats.New++
	b.created = append(b.created, domain.BulletinItem{
		ID:             id,
		ClassifiedItem: *item,
		CreatedAt:      time.Now(),
	})
	return nil
}

// headlineContext bounds headline generation by the configured budget and
// by half of the time left on ctx, so persisting always keeps the rest.
func (s *PipelineService) headlineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := s.config.HeadlineBudget
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; budget <= 0 || half < budget {
			budget = half
		}
	}
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

func (s *PipelineService) classifyAll(ctx context.Context, raw []domain.RawItem, withHeadlines bool) []domain.ClassifiedItem {
	var headlines []string
	if withHeadlines && s.headlines != nil && len(raw) > 0 {
		texts := make([]string, len(raw))
		for i := range raw {
			texts[i] = raw[i].Content
		}
		headlines = s.headlines.GenerateAll(ctx, texts)
	}

	scrapedAt := time.Now().UTC()
	items := make([]domain.ClassifiedItem, 0, len(raw))

	for i, r := range raw {
		c := classify.Classify(r)

		item := domain.ClassifiedItem{
			Content:              r.Content,
			Title:                headline.Fallback(r.Content),
			IsFeedback:           c.IsFeedback,
			IsDonation:           c.IsDonation,
			IsFromStudent:        c.IsFromStudent,
			HasSpecificTargeting: c.HasSpecificTargeting,
			Date:                 c.Date,
			YearGroups:           c.YearGroups,
			Attachments:          r.Attachments,
			ScrapedAt:            scrapedAt,
		}
		if i < len(headlines) && headlines[i] != "" {
			h := headlines[i]
			item.Title = h
			item.AIHeadline = &h
		}
		if r.PostedInfo != "" {
			posted := r.PostedInfo
			item.Metadata.PostedInfo = &posted
		}
		item.Category = classify.Categorize(item.Content, item.Title)

		items = append(items, item)
	}

	return items
}

func (s *PipelineService) afterCommit(ctx context.Context, logger *slog.Logger, b *batch, stats *domain.RunStats) {
	if s.seen != nil {
		for _, fp := range b.known {
			if err := s.seen.Mark(ctx, fp); err != nil {
				logger.Warn("failed to mark item as seen", "error", err)
			}
		}
	}

	for i := range b.created {
		item := &b.created[i]

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, item); err != nil {
				stats.PublishErrors++
				logger.Warn("failed to publish item", "id", item.ID, "error", err)
			} else {
				stats.Published++
			}
		}

		if s.indexer != nil {
			if err := s.indexer.Index(ctx, item); err != nil {
				stats.IndexErrors++
				logger.Warn("failed to index item", "id", item.ID, "error", err)
			} else {
				stats.Indexed++
			}
		}
	}
}

func (s *PipelineService) record(ctx context.Context, logger *slog.Logger, stats *domain.RunStats, runErr error) {
	if s.runs == nil {
		return
	}

	rec := &domain.RunRecord{
		RunID:            stats.RunID,
		Status:           domain.RunStatusSucceeded,
		Scraped:          stats.Scraped,
		New:              stats.New,
		SkippedDuplicate: stats.SkippedDuplicate,
		Failed:           stats.Failed,
		StartedAt:        stats.StartedAt,
		DurationMillis:   stats.Duration.Milliseconds(),
	}
	if runErr != nil {
		msg := runErr.Error()
		rec.Status = domain.RunStatusFailed
		rec.Error = &msg
		// nothing of a failed batch was kept
		rec.New, rec.SkippedDuplicate, rec.Failed = 0, 0, 0
	}

	if err := s.runs.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

// asStorageError passes typed errors and context errors through and wraps
// everything else as a StorageError.
func asStorageError(op string, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
