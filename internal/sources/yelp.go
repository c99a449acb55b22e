package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// YelpSource fetches reviews from the Yelp Fusion API.
type YelpSource struct {
	client      *resty.Client
	apiKey      string
	businessID  string
	workspaceID string
}

type yelpReviewsResponse struct {
	Reviews []struct {
		ID          string `json:"id"`
		Rating      int    `json:"rating"`
		Text        string `json:"text"`
		TimeCreated string `json:"time_created"`
		URL         string `json:"url"`
		User        struct {
			Name       string `json:"name"`
			ImageURL   string `json:"image_url"`
			ProfileURL string `json:"profile_url"`
		} `json:"user"`
	} `json:"reviews"`
}

// NewYelpSource creates a Yelp Fusion review source.
func NewYelpSource(apiKey, businessID, workspaceID string) *YelpSource {
	return &YelpSource{
		client:      resty.New().SetTimeout(30 * time.Second),
		apiKey:      apiKey,
		businessID:  businessID,
		workspaceID: workspaceID,
	}
}

func (s *YelpSource) GetName() string {
	return models.PlatformYelp
}

func (s *YelpSource) IsEnabled() bool {
	return s.apiKey != "" && s.businessID != ""
}

// FetchReviews returns the business's reviews published at or after since.
func (s *YelpSource) FetchReviews(ctx context.Context, since time.Time) ([]models.Review, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.apiKey).
		Get(fmt.Sprintf("https://api.yelp.com/v3/businesses/%s/reviews", s.businessID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("yelp API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var reviewsResp yelpReviewsResponse
	if err := json.Unmarshal(resp.Body(), &reviewsResp); err != nil {
		return nil, fmt.Errorf("failed to parse Yelp response: %w", err)
	}

	var reviews []models.Review
	for _, item := range reviewsResp.Reviews {
		publishedAt, err := time.Parse("2006-01-02 15:04:05", item.TimeCreated)
		if err != nil {
			continue
		}
		publishedAt = publishedAt.UTC()
		if publishedAt.Before(since) {
			continue
		}

		reviews = append(reviews, models.Review{
			WorkspaceID:      s.workspaceID,
			Platform:         models.PlatformYelp,
			PlatformReviewID: item.ID,
			LocationID:       s.businessID,
			ReviewerName:     item.User.Name,
			ReviewerAvatar:   item.User.ImageURL,
			ReviewerProfile:  item.User.ProfileURL,
			Rating:           item.Rating,
			Content:          item.Text,
			PublishedAt:      publishedAt,
		})
	}

	return reviews, nil
}
