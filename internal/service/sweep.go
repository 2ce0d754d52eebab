package service

import (
	"context"
	"log/slog"

	"bulletin_scraper/internal/dedupe"
	"bulletin_scraper/internal/domain"
)

// SweepService finds near-duplicates among already stored items and,
// when asked to, deletes the newer copy of each pair.
type SweepService struct {
	items     ItemStore
	txManager TransactionManager
	indexer   Indexer
	threshold float64
	logger    *slog.Logger
}

func NewSweepService(items ItemStore, txManager TransactionManager, indexer Indexer, threshold float64, logger *slog.Logger) *SweepService {
	if threshold <= 0 {
		threshold = dedupe.DefaultThreshold
	}
	return &SweepService{
		items:     items,
		txManager: txManager,
		indexer:   indexer,
		threshold: threshold,
		logger:    logger.With("component", "sweep"),
	}
}

// Sweep reports duplicate pairs. Storage is only changed when apply is true;
// all deletions then happen in one transaction.
func (s *SweepService) Sweep(ctx context.Context, apply bool) (*domain.DuplicateReport, error) {
	items, err := s.items.ListOldestFirst(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "list items", Err: err}
	}

	pairs := dedupe.FindDuplicates(items, s.threshold)
	report := &domain.DuplicateReport{
		Pairs:      pairs,
		Scanned:    len(items),
		Duplicates: len(pairs),
		DryRun:     !apply,
	}
	if report.Pairs == nil {
		report.Pairs = []domain.DuplicatePair{}
	}

	s.logger.Info("duplicate scan finished",
		"scanned", report.Scanned,
		"duplicates", report.Duplicates,
		"dry_run", report.DryRun,
	)

	if !apply || len(pairs) == 0 {
		return report, nil
	}

	ids := dedupe.DeletedIDs(pairs)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, err := s.items.Delete(txCtx, ids)
		if err != nil {
			return err
		}
		report.Deleted = n
		return nil
	})
	if err != nil {
		return nil, asStorageError("delete duplicates", err)
	}

	s.logger.Info("duplicates deleted", "deleted", report.Deleted)

	if s.indexer != nil {
		if err := s.indexer.Delete(ctx, ids); err != nil {
			s.logger.Warn("failed to remove duplicates from index", "error", err)
		}
	}

	return report, nil
}
