package bulletin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"bulletin_scraper/internal/domain"
)

const (
	SourceID   = "bulletin"
	SourceName = "School Bulletin"
)

// Config holds bulletin source configuration.
type Config struct {
	URL          string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
	MaxItems     int
}

// Snapshotter stores a copy of a page that could not be parsed.
type Snapshotter interface {
	Snapshot(ctx context.Context, body []byte, reason string) error
}

// Source fetches the bulletin page and extracts its items.
type Source struct {
	client    *resty.Client
	url       string
	maxItems  int
	snapshots Snapshotter
	logger    *slog.Logger
}

// New creates a new bulletin source. snapshots may be nil.
func New(cfg Config, snapshots Snapshotter, logger *slog.Logger) *Source {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("User-Agent", cfg.UserAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})

	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	return &Source{
		client:    client,
		url:       cfg.URL,
		maxItems:  maxItems,
		snapshots: snapshots,
		logger:    logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchItems downloads the bulletin page and returns at most maxItems
// items in page order.
func (s *Source) FetchItems(ctx context.Context, maxItems int) ([]domain.RawItem, error) {
	if maxItems <= 0 {
		maxItems = s.maxItems
	}

	body, contentType, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	items, err := Extract(bytes.NewReader(body), contentType, maxItems)
	if err != nil {
		var notFound *domain.ContentNotFoundError
		if errors.As(err, &notFound) {
			s.snapshot(ctx, body, err)
			return nil, err
		}
		return nil, &domain.TransportError{Op: "parse", URL: s.url, Err: err}
	}

	s.logger.Debug("extracted items", "count", len(items), "max_items", maxItems)

	return items, nil
}

func (s *Source) fetch(ctx context.Context) ([]byte, string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(s.url)
	if err != nil {
		return nil, "", &domain.TransportError{Op: "GET", URL: s.url, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, "", &domain.TransportError{Op: "GET", URL: s.url, StatusCode: resp.StatusCode()}
	}

	s.logger.Debug("fetched page",
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"elapsed", resp.Time(),
	)

	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

func (s *Source) snapshot(ctx context.Context, body []byte, cause error) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Snapshot(ctx, body, cause.Error()); err != nil {
		s.logger.Warn("failed to store page snapshot", "error", err)
	}
}
