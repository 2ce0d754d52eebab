package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"bulletin_scraper/internal/domain"
)

const DefaultIndex = "bulletin-items"

type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Indexer mirrors stored bulletin items into an Elasticsearch index so they
// can be searched by other services.
type Indexer struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// Document is the indexed form of an item.
type Document struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Category      domain.Category `json:"category"`
	YearGroups    []string        `json:"year_groups,omitempty"`
	Date          *string         `json:"date,omitempty"`
	IsFeedback    bool            `json:"is_feedback"`
	IsDonation    bool            `json:"is_donation"`
	IsFromStudent bool            `json:"is_from_student"`
	ScrapedAt     time.Time       `json:"scraped_at"`
}

func NewDocument(item *domain.BulletinItem) Document {
	doc := Document{
		ID:            item.ID,
		Title:         item.Title,
		Content:       item.Content,
		Category:      item.Category,
		Date:          item.Date,
		IsFeedback:    item.IsFeedback,
		IsDonation:    item.IsDonation,
		IsFromStudent: item.IsFromStudent,
		ScrapedAt:     item.ScrapedAt,
	}
	if item.YearGroups != nil {
		for _, g := range strings.Split(*item.YearGroups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				doc.YearGroups = append(doc.YearGroups, g)
			}
		}
	}
	return doc
}

func New(cfg Config, logger *slog.Logger) (*Indexer, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("search: no addresses configured")
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Indexer{es: es, index: cfg.Index, log: logger.With("component", "search")}, nil
}

func (i *Indexer) Ping(ctx context.Context) error {
	res, err := i.es.Ping(i.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Index writes item under its database id, replacing any earlier version.
func (i *Indexer) Index(ctx context.Context, item *domain.BulletinItem) error {
	payload, err := json.Marshal(NewDocument(item))
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(item.ID, 10),
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// Delete removes the documents of the given item ids. Ids without a
// document are ignored.
func (i *Indexer) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"terms": map[string]any{"id": ids},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	res, err := i.es.DeleteByQuery(
		[]string{i.index},
		bytes.NewReader(payload),
		i.es.DeleteByQuery.WithContext(ctx),
		i.es.DeleteByQuery.WithWaitForCompletion(true),
		i.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode delete response: %w", err)
	}

	i.log.Debug("deleted documents", "requested", len(ids), "deleted", parsed.Deleted)

	return nil
}
