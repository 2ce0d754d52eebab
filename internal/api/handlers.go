package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"bulletin_scraper/internal/domain"
	"bulletin_scraper/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 50
	defaultRuns    = 20
	maxRuns        = 200
	statsWindow    = 7 * 24 * time.Hour
)

type runRequest struct {
	MaxItems          int  `json:"max_items" validate:"omitempty,min=1,max=200"`
	GenerateHeadlines bool `json:"generate_headlines"`
}

type itemsQuery struct {
	Categories []string `validate:"dive,oneof=sports academic events clubs food admin general"`
	YearGroup  string   `validate:"omitempty,max=16"`
	Keyword    string   `validate:"omitempty,max=200"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.deps.DB.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if !s.validateRequest(w, req) {
		return
	}

	stats, err := s.deps.Runner.Run(r.Context(), service.RunRequest{
		MaxItems:          req.MaxItems,
		GenerateHeadlines: req.GenerateHeadlines,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRunStatsResponse(stats))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), defaultRuns, maxRuns)

	runs, err := s.deps.Runs.Latest(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]runRecordResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunRecordResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := itemsQuery{
		Categories: parseCategories(q["category"]),
		YearGroup:  strings.TrimSpace(q.Get("year_group")),
		Keyword:    strings.TrimSpace(q.Get("keyword")),
	}
	if !s.validateRequest(w, query) {
		return
	}

	filter := domain.ItemFilter{
		YearGroup:        query.YearGroup,
		Keyword:          query.Keyword,
		ExcludeFeedback:  parseBool(q.Get("exclude_feedback")),
		ExcludeDonations: parseBool(q.Get("exclude_donations")),
		Page:             clampInt(q.Get("page"), 1, 1_000_000),
		PerPage:          clampInt(q.Get("per_page"), defaultPerPage, maxPerPage),
	}
	for _, c := range query.Categories {
		filter.Categories = append(filter.Categories, domain.Category(c))
	}

	page, err := s.deps.Items.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := itemPageResponse{
		Items:   make([]itemResponse, 0, len(page.Items)),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.Pages(),
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, toItemResponse(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item id"})
		return
	}

	item, err := s.deps.Items.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Items.Stats(r.Context(), s.now().Add(-statsWindow))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	byCategory := make(map[domain.Category]int, len(domain.Categories))
	for _, c := range domain.Categories {
		byCategory[c] = stats.ByCategory[c]
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:      stats.Total,
		LastWeek:   stats.Recent,
		Feedback:   stats.Feedback,
		Donation:   stats.Donation,
		ByCategory: byCategory,
	})
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	s.sweep(w, r, false)
}

func (s *Server) handleApplyDuplicates(w http.ResponseWriter, r *http.Request) {
	s.sweep(w, r, true)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request, apply bool) {
	report, err := s.deps.Sweeper.Sweep(r.Context(), apply)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// validateRequest writes a 422 listing the failing fields and reports
// whether v passed.
func (s *Server) validateRequest(w http.ResponseWriter, v any) bool {
	err := s.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
	return false
}

// parseCategories accepts both repeated and comma separated values.
func parseCategories(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}
