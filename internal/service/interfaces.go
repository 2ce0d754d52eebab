package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"bulletin_scraper/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	FetchItems(ctx context.Context, maxItems int) ([]domain.RawItem, error)
}

type ItemStore interface {
	Create(ctx context.Context, item *domain.ClassifiedItem) (int64, error)
	FindByContent(ctx context.Context, content string) (*domain.BulletinItem, error)
	Recent(ctx context.Context, limit int) ([]domain.BulletinItem, error)
	ListOldestFirst(ctx context.Context) ([]domain.BulletinItem, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
}

type RunStore interface {
	Record(ctx context.Context, run *domain.RunRecord) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

type HeadlineGenerator interface {
	GenerateAll(ctx context.Context, texts []string) []string
}

type SeenCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.BulletinItem) error
	Close() error
}

type Indexer interface {
	Index(ctx context.Context, item *domain.BulletinItem) error
	Delete(ctx context.Context, ids []int64) error
}
