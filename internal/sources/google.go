package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// GoogleSource fetches reviews from the Google Places Details API.
type GoogleSource struct {
	client      *resty.Client
	apiKey      string
	placeID     string
	workspaceID string
}

type googlePlaceResponse struct {
	Result struct {
		Name    string `json:"name"`
		Reviews []struct {
			AuthorName      string `json:"author_name"`
			AuthorURL       string `json:"author_url"`
			ProfilePhotoURL string `json:"profile_photo_url"`
			Rating          int    `json:"rating"`
			Text            string `json:"text"`
			Time            int64  `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
	Status string `json:"status"`
}

// NewGoogleSource creates a Google Places review source.
func NewGoogleSource(apiKey, placeID, workspaceID string) *GoogleSource {
	return &GoogleSource{
		client:      resty.New().SetTimeout(30 * time.Second),
		apiKey:      apiKey,
		placeID:     placeID,
		workspaceID: workspaceID,
	}
}

func (s *GoogleSource) GetName() string {
	return models.PlatformGoogle
}

func (s *GoogleSource) IsEnabled() bool {
	return s.apiKey != "" && s.placeID != ""
}

// FetchReviews returns the place's reviews published at or after since.
func (s *GoogleSource) FetchReviews(ctx context.Context, since time.Time) ([]models.Review, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"place_id": s.placeID,
			"fields":   "name,reviews",
			"key":      s.apiKey,
		}).
		Get("https://maps.googleapis.com/maps/api/place/details/json")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("google places API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var placeResp googlePlaceResponse
	if err := json.Unmarshal(resp.Body(), &placeResp); err != nil {
		return nil, fmt.Errorf("failed to parse Google Places response: %w", err)
	}
	if placeResp.Status != "OK" {
		return nil, fmt.Errorf("google places API returned status %s", placeResp.Status)
	}

	var reviews []models.Review
	for _, item := range placeResp.Result.Reviews {
		publishedAt := time.Unix(item.Time, 0).UTC()
		if publishedAt.Before(since) {
			continue
		}

		reviews = append(reviews, models.Review{
			WorkspaceID: s.workspaceID,
			Platform:    models.PlatformGoogle,
			// The Places API exposes no review id, so the place id plus the
			// publish timestamp stands in as the stable identifier.
			PlatformReviewID: fmt.Sprintf("%s_%d", s.placeID, item.Time),
			LocationID:       s.placeID,
			LocationName:     placeResp.Result.Name,
			ReviewerName:     item.AuthorName,
			ReviewerAvatar:   item.ProfilePhotoURL,
			ReviewerProfile:  item.AuthorURL,
			Rating:           item.Rating,
			Content:          item.Text,
			Verified:         true,
			PublishedAt:      publishedAt,
		})
	}

	return reviews, nil
}
