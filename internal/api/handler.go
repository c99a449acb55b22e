package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/analytics"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/reputation"
	"github.com/reviewpulse/reviewpulse/internal/reviews"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Handler exposes the pipeline's operations over HTTP/JSON.
type Handler struct {
	reviews   *reviews.Service
	scorer    *reputation.Scorer
	detector  *alerts.Detector
	analytics *analytics.Aggregator
	validate  *validator.Validate
}

// NewHandler creates the HTTP handler set.
func NewHandler(reviewSvc *reviews.Service, scorer *reputation.Scorer, detector *alerts.Detector, aggregator *analytics.Aggregator) *Handler {
	return &Handler{
		reviews:   reviewSvc,
		scorer:    scorer,
		detector:  detector,
		analytics: aggregator,
		validate:  validator.New(),
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/reviews", h.createReview).Methods("POST")
	api.HandleFunc("/reviews/bulk-status", h.bulkUpdateStatus).Methods("POST")
	api.HandleFunc("/reviews/{id}", h.getReview).Methods("GET")
	api.HandleFunc("/reviews/{id}", h.updateReview).Methods("PATCH")
	api.HandleFunc("/reviews/{id}", h.deleteReview).Methods("DELETE")
	api.HandleFunc("/reviews/{id}/reanalyze", h.reanalyzeReview).Methods("POST")

	api.HandleFunc("/workspaces/{id}/reviews", h.listReviews).Methods("GET")
	api.HandleFunc("/workspaces/{id}/statistics", h.statistics).Methods("GET")
	api.HandleFunc("/workspaces/{id}/reputation", h.currentReputation).Methods("GET")
	api.HandleFunc("/workspaces/{id}/reputation/trends", h.reputationTrends).Methods("GET")
	api.HandleFunc("/workspaces/{id}/analytics/dashboard", h.dashboard).Methods("GET")
	api.HandleFunc("/workspaces/{id}/analytics/volume", h.volumeTrends).Methods("GET")
	api.HandleFunc("/workspaces/{id}/analytics/comparison", h.comparison).Methods("GET")
	api.HandleFunc("/workspaces/{id}/alerts", h.listAlerts).Methods("GET")
	api.HandleFunc("/workspaces/{id}/alerts/run", h.runAlertChecks).Methods("POST")

	api.HandleFunc("/alerts/{id}/acknowledge", h.acknowledgeAlert).Methods("POST")
	api.HandleFunc("/alerts/{id}/resolve", h.resolveAlert).Methods("POST")
}

type createReviewRequest struct {
	WorkspaceID      string    `json:"workspace_id" validate:"required"`
	Platform         string    `json:"platform" validate:"required"`
	PlatformReviewID string    `json:"platform_review_id" validate:"required"`
	LocationID       string    `json:"location_id"`
	LocationName     string    `json:"location_name"`
	ReviewerName     string    `json:"reviewer_name"`
	ReviewerAvatar   string    `json:"reviewer_avatar"`
	ReviewerProfile  string    `json:"reviewer_profile"`
	Rating           int       `json:"rating" validate:"required,min=1,max=5"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Verified         bool      `json:"verified"`
	Tags             []string  `json:"tags"`
	PublishedAt      time.Time `json:"published_at"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	publishedAt := req.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	review, err := h.reviews.Create(r.Context(), &models.Review{
		WorkspaceID:      req.WorkspaceID,
		Platform:         req.Platform,
		PlatformReviewID: req.PlatformReviewID,
		LocationID:       req.LocationID,
		LocationName:     req.LocationName,
		ReviewerName:     req.ReviewerName,
		ReviewerAvatar:   req.ReviewerAvatar,
		ReviewerProfile:  req.ReviewerProfile,
		Rating:           req.Rating,
		Title:            req.Title,
		Content:          req.Content,
		Verified:         req.Verified,
		Tags:             req.Tags,
		PublishedAt:      publishedAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, review)
}

type updateReviewRequest struct {
	Status       *models.ReviewStatus `json:"status"`
	HasResponse  *bool                `json:"has_response"`
	ResponseDate *time.Time           `json:"response_date"`
	Tags         []string             `json:"tags"`
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	var req updateReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	review, err := h.reviews.Update(r.Context(), mux.Vars(r)["id"], models.ReviewUpdate{
		Status:       req.Status,
		HasResponse:  req.HasResponse,
		ResponseDate: req.ResponseDate,
		Tags:         req.Tags,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, review)
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reanalyzeReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Reanalyze(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, review)
}

type bulkStatusRequest struct {
	IDs    []string            `json:"ids" validate:"required,min=1"`
	Status models.ReviewStatus `json:"status" validate:"required"`
}

func (h *Handler) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.reviews.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.reviews.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	stats, err := h.reviews.Statistics(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) currentReputation(w http.ResponseWriter, r *http.Request) {
	score, err := h.scorer.Current(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if score == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"score": nil})
		return
	}
	h.writeJSON(w, http.StatusOK, score)
}

func (h *Handler) reputationTrends(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseDate(query.Get("from"), time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		h.writeError(w, err)
		return
	}
	to, err := parseDate(query.Get("to"), time.Now().UTC())
	if err != nil {
		h.writeError(w, err)
		return
	}

	trends, err := h.scorer.Trends(r.Context(), mux.Vars(r)["id"], from, to, optParam(query.Get("platform")), optParam(query.Get("location_id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trends)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dashboard, err := h.analytics.Dashboard(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) volumeTrends(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r.URL.Query().Get("days"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	points, err := h.analytics.VolumeTrends(r.Context(), mux.Vars(r)["id"], days)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

func (h *Handler) comparison(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r.URL.Query().Get("days"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.analytics.Comparison(r.Context(), mux.Vars(r)["id"], days)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	var status *models.AlertStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.AlertStatus(raw)
		status = &s
	}

	result, err := h.detector.List(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) runAlertChecks(w http.ResponseWriter, r *http.Request) {
	raised, err := h.detector.RunChecks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, raised)
}

type acknowledgeRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	alert, err := h.detector.Acknowledge(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, alert)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.detector.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, alert)
}

// decode reads and validates a JSON request body; on failure it writes the
// error response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) parseFilter(r *http.Request) (models.ReviewFilter, error) {
	query := r.URL.Query()
	filter := models.ReviewFilter{
		WorkspaceID: mux.Vars(r)["id"],
		Platform:    optParam(query.Get("platform")),
		LocationID:  optParam(query.Get("location_id")),
	}

	for key, dst := range map[string]**int{"min_rating": &filter.MinRating, "max_rating": &filter.MaxRating} {
		if raw := query.Get(key); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return filter, fmt.Errorf("%s must be numeric: %w", key, reviews.ErrInvalidInput)
			}
			*dst = &value
		}
	}

	if raw := query.Get("sentiment"); raw != "" {
		sentiment := models.Sentiment(raw)
		filter.Sentiment = &sentiment
	}
	if raw := query.Get("status"); raw != "" {
		status := models.ReviewStatus(raw)
		filter.Status = &status
	}
	if raw := query.Get("has_response"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("has_response must be boolean: %w", reviews.ErrInvalidInput)
		}
		filter.HasResponse = &value
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("from must be YYYY-MM-DD: %w", reviews.ErrInvalidInput)
		}
		filter.PublishedAfter = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("to must be YYYY-MM-DD: %w", reviews.ErrInvalidInput)
		}
		end := models.DayEnd(to)
		filter.PublishedBefore = &end
	}

	return filter, nil
}

func optParam(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", reviews.ErrInvalidInput)
	}
	return parsed, nil
}

func parseDays(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 0, fmt.Errorf("days must be a positive integer: %w", reviews.ErrInvalidInput)
	}
	return days, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, reviews.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		logrus.Errorf("Request failed: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
