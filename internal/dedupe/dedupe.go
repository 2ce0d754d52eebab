package dedupe

import (
	"context"
	"fmt"

	"bulletin_scraper/internal/domain"
)

const DefaultWindow = 50

// Lookup is the read side of the item store used for duplicate checks.
type Lookup interface {
	FindByContent(ctx context.Context, content string) (*domain.BulletinItem, error)
	Recent(ctx context.Context, limit int) ([]domain.BulletinItem, error)
}

type Config struct {
	Window    int
	Threshold float64
}

// Decision is the outcome of a duplicate check.
type Decision struct {
	Duplicate bool
	MatchID   int64
	Reason    string
}

type Deduplicator struct {
	lookup    Lookup
	window    int
	threshold float64
}

func New(lookup Lookup, cfg Config) *Deduplicator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Deduplicator{lookup: lookup, window: cfg.Window, threshold: cfg.Threshold}
}

// Check compares content against stored items: an exact lookup first,
// then the most recent items newest-first. The first match wins. The
// returned error only reports a failed store read.
func (d *Deduplicator) Check(ctx context.Context, content string) (Decision, error) {
	existing, err := d.lookup.FindByContent(ctx, content)
	if err != nil {
		return Decision{}, fmt.Errorf("find by content: %w", err)
	}
	if existing != nil {
		return Decision{Duplicate: true, MatchID: existing.ID, Reason: ReasonExact}, nil
	}

	recent, err := d.lookup.Recent(ctx, d.window)
	if err != nil {
		return Decision{}, fmt.Errorf("load recent items: %w", err)
	}

	normalized := Normalize(content)
	for _, item := range recent {
		if reason, ok := compare(normalized, Normalize(item.Content), d.threshold); ok {
			return Decision{Duplicate: true, MatchID: item.ID, Reason: reason}, nil
		}
	}

	return Decision{}, nil
}
