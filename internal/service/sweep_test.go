package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bulletin_scraper/internal/dedupe"
	"bulletin_scraper/internal/domain"
	"bulletin_scraper/internal/service/mocks"
)

type SweepServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	items     *mocks.MockItemStore
	txManager *mocks.MockTransactionManager
	indexer   *mocks.MockIndexer

	service *SweepService
	stored  []domain.BulletinItem
}

func (s *SweepServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.items = mocks.NewMockItemStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.indexer = mocks.NewMockIndexer(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.service = NewSweepService(s.items, s.txManager, s.indexer, 0, logger)

	s.stored = []domain.BulletinItem{
		{ID: 1, ClassifiedItem: domain.ClassifiedItem{Title: "Menu", Content: menuItem.Content}},
		{ID: 2, ClassifiedItem: domain.ClassifiedItem{Title: "Trials", Content: trialsItem.Content}},
		{ID: 5, ClassifiedItem: domain.ClassifiedItem{Title: "Menu again", Content: "canteen menu for 12/03/2025 pasta salad and fruit"}},
	}
}

func (s *SweepServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSweepServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SweepServiceTestSuite))
}

func (s *SweepServiceTestSuite) TestSweep_DryRun() {
	ctx := context.Background()
	s.items.EXPECT().ListOldestFirst(ctx).Return(s.stored, nil)

	report, err := s.service.Sweep(ctx, false)

	s.Require().NoError(err)
	s.True(report.DryRun)
	s.Equal(3, report.Scanned)
	s.Equal(1, report.Duplicates)
	s.Equal(int64(0), report.Deleted)
	s.Equal([]domain.DuplicatePair{{
		KeptID:       1,
		KeptTitle:    "Menu",
		DeletedID:    5,
		DeletedTitle: "Menu again",
		Reason:       dedupe.ReasonNormalized,
	}}, report.Pairs)
}

func (s *SweepServiceTestSuite) TestSweep_Apply() {
	ctx := context.Background()
	s.items.EXPECT().ListOldestFirst(ctx).Return(s.stored, nil)
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.items.EXPECT().Delete(ctx, []int64{5}).Return(int64(1), nil)
	s.indexer.EXPECT().Delete(ctx, []int64{5}).Return(nil)

	report, err := s.service.Sweep(ctx, true)

	s.Require().NoError(err)
	s.False(report.DryRun)
	s.Equal(int64(1), report.Deleted)
}

func (s *SweepServiceTestSuite) TestSweep_ApplyWithNothingToDelete() {
	ctx := context.Background()
	s.items.EXPECT().ListOldestFirst(ctx).Return(s.stored[:2], nil)

	report, err := s.service.Sweep(ctx, true)

	s.Require().NoError(err)
	s.NotNil(report.Pairs)
	s.Empty(report.Pairs)
	s.Equal(int64(0), report.Deleted)
}

func (s *SweepServiceTestSuite) TestSweep_DeleteFailure() {
	ctx := context.Background()
	dbErr := errors.New("deadlock detected")

	s.items.EXPECT().ListOldestFirst(ctx).Return(s.stored, nil)
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.items.EXPECT().Delete(ctx, []int64{5}).Return(int64(0), dbErr)

	report, err := s.service.Sweep(ctx, true)

	s.Nil(report)
	var storageErr *domain.StorageError
	s.Require().ErrorAs(err, &storageErr)
	s.Equal("delete duplicates", storageErr.Op)
	s.ErrorIs(err, dbErr)
}

func (s *SweepServiceTestSuite) TestSweep_IndexFailureIsNotFatal() {
	ctx := context.Background()
	s.items.EXPECT().ListOldestFirst(ctx).Return(s.stored, nil)
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.items.EXPECT().Delete(ctx, []int64{5}).Return(int64(1), nil)
	s.indexer.EXPECT().Delete(ctx, []int64{5}).Return(errors.New("index closed"))

	report, err := s.service.Sweep(ctx, true)

	s.Require().NoError(err)
	s.Equal(int64(1), report.Deleted)
}

func (s *SweepServiceTestSuite) TestSweep_ListFailure() {
	ctx := context.Background()
	s.items.EXPECT().ListOldestFirst(ctx).Return(nil, errors.New("timeout"))

	_, err := s.service.Sweep(ctx, false)

	var storageErr *domain.StorageError
	s.ErrorAs(err, &storageErr)
}
