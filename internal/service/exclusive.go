package service

import (
	"context"
	"errors"
	"sync"

	"bulletin_scraper/internal/domain"
)

var ErrRunInProgress = errors.New("a run is already in progress")

type Runner interface {
	Run(ctx context.Context, req RunRequest) (*domain.RunStats, error)
}

// ExclusiveRunner lets at most one run execute at a time. A call made while
// another run is active fails with ErrRunInProgress instead of waiting.
type ExclusiveRunner struct {
	runner Runner
	mu     sync.Mutex
}

func NewExclusiveRunner(runner Runner) *ExclusiveRunner {
	return &ExclusiveRunner{runner: runner}
}

func (e *ExclusiveRunner) Run(ctx context.Context, req RunRequest) (*domain.RunStats, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	return e.runner.Run(ctx, req)
}
