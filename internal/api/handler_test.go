package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/analytics"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/reputation"
	"github.com/reviewpulse/reviewpulse/internal/reviews"
	"github.com/reviewpulse/reviewpulse/internal/sentiment"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

func newTestRouter() (*mux.Router, *reviews.Service) {
	reviewStore := store.NewMemoryReviews()
	scoreStore := store.NewMemoryScores()
	alertStore := store.NewMemoryAlerts()

	analyzer := sentiment.NewAnalyzer(reviewStore)
	detector := alerts.NewDetector(reviewStore, alertStore, nil)
	scorer := reputation.NewScorer(reviewStore, scoreStore)
	aggregator := analytics.NewAggregator(reviewStore)
	reviewService := reviews.NewService(reviewStore, analyzer, detector)

	router := mux.NewRouter()
	NewHandler(reviewService, scorer, detector, aggregator).Register(router)
	return router, reviewService
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestCreateReview(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doJSON(t, router, "POST", "/api/v1/reviews", map[string]interface{}{
		"workspace_id":       "ws-1",
		"platform":           "google",
		"platform_review_id": "r-1",
		"rating":             5,
		"content":            "Great service and friendly staff",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)

	var created models.Review
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.SentimentPositive, created.Sentiment)
	assert.Contains(t, created.Topics, "service")
}

func TestCreateReview_ValidationErrors(t *testing.T) {
	router, _ := newTestRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "Missing rating",
			body: map[string]interface{}{"workspace_id": "ws-1", "platform": "google", "platform_review_id": "x"},
		},
		{
			name: "Rating out of range",
			body: map[string]interface{}{"workspace_id": "ws-1", "platform": "google", "platform_review_id": "x", "rating": 9},
		},
		{
			name: "Missing workspace",
			body: map[string]interface{}{"platform": "google", "platform_review_id": "x", "rating": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doJSON(t, router, "POST", "/api/v1/reviews", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestCreateReview_DuplicateConflict(t *testing.T) {
	router, _ := newTestRouter()

	body := map[string]interface{}{
		"workspace_id":       "ws-1",
		"platform":           "google",
		"platform_review_id": "dup",
		"rating":             4,
	}
	first := doJSON(t, router, "POST", "/api/v1/reviews", body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, "POST", "/api/v1/reviews", body)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestGetReview_NotFound(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doJSON(t, router, "GET", "/api/v1/reviews/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	router, service := newTestRouter()

	created, err := service.Create(context.Background(), &models.Review{
		WorkspaceID:      "ws-1",
		Platform:         models.PlatformGoogle,
		PlatformReviewID: "r-upd",
		Rating:           3,
		PublishedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	recorder := doJSON(t, router, "PATCH", "/api/v1/reviews/"+created.ID, map[string]interface{}{
		"status": "RESPONDED",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var updated models.Review
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &updated))
	assert.Equal(t, models.ReviewStatusResponded, updated.Status)

	recorder = doJSON(t, router, "DELETE", "/api/v1/reviews/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(t, router, "GET", "/api/v1/reviews/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListReviews_QueryFilters(t *testing.T) {
	router, service := newTestRouter()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, rating := range []int{5, 2, 4} {
		_, err := service.Create(ctx, &models.Review{
			WorkspaceID:      "ws-list",
			Platform:         models.PlatformGoogle,
			PlatformReviewID: fmt.Sprintf("r-%d", i),
			Rating:           rating,
			PublishedAt:      now.Add(-time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-list/reviews?min_rating=4", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listed []models.Review
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)

	recorder = doJSON(t, router, "GET", "/api/v1/workspaces/ws-list/reviews?min_rating=abc", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStatisticsEndpoint(t *testing.T) {
	router, service := newTestRouter()

	_, err := service.Create(context.Background(), &models.Review{
		WorkspaceID:      "ws-stats",
		Platform:         models.PlatformGoogle,
		PlatformReviewID: "s-1",
		Rating:           5,
		PublishedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-stats/statistics", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stats reviews.Statistics
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalReviews)
}

func TestCurrentReputationEndpoint(t *testing.T) {
	router, service := newTestRouter()

	_, err := service.Create(context.Background(), &models.Review{
		WorkspaceID:      "ws-rep",
		Platform:         models.PlatformGoogle,
		PlatformReviewID: "rep-1",
		Rating:           5,
		PublishedAt:      time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-rep/reputation", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var score models.ReputationScore
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &score))
	assert.Equal(t, 1, score.TotalReviews)
	assert.Greater(t, score.OverallScore, 0)
}

func TestDashboardEndpoint(t *testing.T) {
	router, service := newTestRouter()

	_, err := service.Create(context.Background(), &models.Review{
		WorkspaceID:      "ws-dash",
		Platform:         models.PlatformYelp,
		PlatformReviewID: "d-1",
		Rating:           4,
		Content:          "Good food",
		PublishedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-dash/analytics/dashboard", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var dashboard analytics.Dashboard
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dashboard))
	assert.Equal(t, 1, dashboard.Overview.TotalReviews)
	assert.Equal(t, 1, dashboard.RatingDistribution[4])
}

func TestAlertLifecycleEndpoints(t *testing.T) {
	router, service := newTestRouter()

	// A 1-star review raises a critical alert on ingestion.
	_, err := service.Create(context.Background(), &models.Review{
		WorkspaceID:      "ws-alerts",
		Platform:         models.PlatformGoogle,
		PlatformReviewID: "bad-1",
		Rating:           1,
		Content:          "Terrible",
		PublishedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-alerts/alerts?status=ACTIVE", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var open []models.ReviewAlert
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &open))
	require.Len(t, open, 1)

	recorder = doJSON(t, router, "POST", "/api/v1/alerts/"+open[0].ID+"/acknowledge", map[string]interface{}{
		"user_id": "user-9",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var acked models.ReviewAlert
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &acked))
	assert.Equal(t, models.AlertStatusAcknowledged, acked.Status)
	assert.Equal(t, "user-9", acked.AcknowledgedBy)

	recorder = doJSON(t, router, "POST", "/api/v1/alerts/"+open[0].ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resolved models.ReviewAlert
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resolved))
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
}

func TestAcknowledge_RequiresUserID(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doJSON(t, router, "POST", "/api/v1/alerts/some-id/acknowledge", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestVolumeTrendsEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doJSON(t, router, "GET", "/api/v1/workspaces/ws-1/analytics/volume?days=7", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var points []analytics.VolumePoint
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &points))
	assert.Len(t, points, 7)

	recorder = doJSON(t, router, "GET", "/api/v1/workspaces/ws-1/analytics/volume?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
