package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bulletin_scraper/internal/domain"
	"bulletin_scraper/internal/service"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type itemResponse struct {
	ID                   int64               `json:"id"`
	Title                string              `json:"title"`
	AIHeadline           *string             `json:"ai_headline"`
	Content              string              `json:"content"`
	Category             domain.Category     `json:"category"`
	IsFeedback           bool                `json:"is_feedback"`
	IsDonation           bool                `json:"is_donation"`
	IsFromStudent        bool                `json:"is_from_student"`
	HasSpecificTargeting bool                `json:"has_specific_targeting"`
	Date                 *string             `json:"date"`
	YearGroups           *string             `json:"year_groups"`
	Attachments          []domain.Attachment `json:"attachments"`
	Metadata             domain.Metadata     `json:"metadata"`
	ScrapedAt            time.Time           `json:"scraped_at"`
	CreatedAt            time.Time           `json:"created_at"`
}

func toItemResponse(item *domain.BulletinItem) itemResponse {
	attachments := item.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return itemResponse{
		ID:                   item.ID,
		Title:                item.Title,
		AIHeadline:           item.AIHeadline,
		Content:              item.Content,
		Category:             item.Category,
		IsFeedback:           item.IsFeedback,
		IsDonation:           item.IsDonation,
		IsFromStudent:        item.IsFromStudent,
		HasSpecificTargeting: item.HasSpecificTargeting,
		Date:                 item.Date,
		YearGroups:           item.YearGroups,
		Attachments:          attachments,
		Metadata:             item.Metadata,
		ScrapedAt:            item.ScrapedAt,
		CreatedAt:            item.CreatedAt,
	}
}

type itemPageResponse struct {
	Items   []itemResponse `json:"items"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Pages   int            `json:"pages"`
}

type runStatsResponse struct {
	RunID            string    `json:"run_id"`
	Scraped          int       `json:"scraped"`
	New              int       `json:"new"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
	Failed           int       `json:"failed"`
	Published        int       `json:"published"`
	PublishErrors    int       `json:"publish_errors"`
	Indexed          int       `json:"indexed"`
	IndexErrors      int       `json:"index_errors"`
	StartedAt        time.Time `json:"started_at"`
	DurationMillis   int64     `json:"duration_ms"`
}

func toRunStatsResponse(s *domain.RunStats) runStatsResponse {
	return runStatsResponse{
		RunID:            s.RunID,
		Scraped:          s.Scraped,
		New:              s.New,
		SkippedDuplicate: s.SkippedDuplicate,
		Failed:           s.Failed,
		Published:        s.Published,
		PublishErrors:    s.PublishErrors,
		Indexed:          s.Indexed,
		IndexErrors:      s.IndexErrors,
		StartedAt:        s.StartedAt,
		DurationMillis:   s.Duration.Milliseconds(),
	}
}

type runRecordResponse struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	Status           string    `json:"status"`
	Error            *string   `json:"error"`
	Scraped          int       `json:"scraped"`
	New              int       `json:"new"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
	Failed           int       `json:"failed"`
	StartedAt        time.Time `json:"started_at"`
	DurationMillis   int64     `json:"duration_ms"`
}

func toRunRecordResponse(r domain.RunRecord) runRecordResponse {
	return runRecordResponse{
		ID:               r.ID,
		RunID:            r.RunID,
		Status:           r.Status,
		Error:            r.Error,
		Scraped:          r.Scraped,
		New:              r.New,
		SkippedDuplicate: r.SkippedDuplicate,
		Failed:           r.Failed,
		StartedAt:        r.StartedAt,
		DurationMillis:   r.DurationMillis,
	}
}

type statsResponse struct {
	Total      int                     `json:"total"`
	LastWeek   int                     `json:"last_7_days"`
	Feedback   int                     `json:"feedback"`
	Donation   int                     `json:"donation"`
	ByCategory map[domain.Category]int `json:"by_category"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps pipeline and storage errors onto status codes. Context
// errors win over the typed error that carries them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transportErr *domain.TransportError
		notFoundErr  *domain.ContentNotFoundError
		storageErr   *domain.StorageError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	case errors.As(err, &notFoundErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &storageErr):
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.log.Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
