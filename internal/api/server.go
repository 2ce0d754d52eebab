package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"bulletin_scraper/internal/domain"
	"bulletin_scraper/internal/service"
)

type RunLister interface {
	Latest(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type ItemReader interface {
	List(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error)
	Get(ctx context.Context, id int64) (*domain.BulletinItem, error)
	Stats(ctx context.Context, since time.Time) (*domain.ItemStats, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, apply bool) (*domain.DuplicateReport, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators behind the operator API. DB is optional and
// only used by the health check.
type Deps struct {
	Runner  service.Runner
	Runs    RunLister
	Items   ItemReader
	Sweeper Sweeper
	DB      Pinger
}

type Server struct {
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	return &Server{
		deps:     deps,
		validate: validator.New(),
		log:      logger.With("component", "api"),
		now:      time.Now,
	}
}

// Routes builds the chi router for the operator API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs", s.handleListRuns)

		r.Get("/items", s.handleListItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Get("/stats", s.handleStats)

		r.Get("/duplicates", s.handleDuplicates)
		r.Post("/duplicates/apply", s.handleApplyDuplicates)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
