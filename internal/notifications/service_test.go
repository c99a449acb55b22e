package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/models"
)

func testDigest() *Digest {
	return &Digest{
		WorkspaceID: "ws-1",
		GeneratedAt: time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC),
		Score: &models.ReputationScore{
			WorkspaceID:        "ws-1",
			OverallScore:       82,
			AverageRating:      4.3,
			TotalReviews:       120,
			PositivePercentage: 75,
			ResponseRate:       60,
		},
		Alerts: []models.ReviewAlert{
			{
				Type:        models.AlertRatingDrop,
				Severity:    models.SeverityHigh,
				Title:       "Average rating dropped",
				Description: "Average rating fell by 0.6 stars",
				CreatedAt:   time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestBuildAlertMessage(t *testing.T) {
	service := NewService(&config.Config{})

	alert := &models.ReviewAlert{
		WorkspaceID:     "ws-1",
		Type:            models.AlertReviewSpike,
		Severity:        models.SeverityCritical,
		Title:           "Unusual review volume",
		Description:     "15 reviews in the last 24 hours",
		AffectedReviews: 15,
		CreatedAt:       time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
	}

	message := service.buildAlertMessage(alert)

	assert.Equal(t, "MessageCard", message.Type)
	assert.Contains(t, message.Title, "Unusual review volume")
	assert.Equal(t, "15 reviews in the last 24 hours", message.Text)
	require.Len(t, message.Sections, 1)

	facts := message.Sections[0].Facts
	names := make([]string, 0, len(facts))
	for _, fact := range facts {
		names = append(names, fact.Name)
	}
	assert.Contains(t, names, "Severity")
	assert.Contains(t, names, "Affected Reviews")
	assert.NotContains(t, names, "Rating Drop")
}

func TestBuildDigestMessage(t *testing.T) {
	service := NewService(&config.Config{})

	message := service.buildDigestMessage(testDigest())

	assert.Contains(t, message.Title, "ws-1")
	require.Len(t, message.Sections, 2)
	assert.Equal(t, "Reputation Score", message.Sections[0].ActivityTitle)
	assert.Equal(t, "Open Alerts", message.Sections[1].ActivityTitle)
	assert.Contains(t, message.Sections[1].ActivityText, "RATING_DROP")
}

func TestBuildDigestText(t *testing.T) {
	service := NewService(&config.Config{})

	text := service.buildDigestText(testDigest())

	assert.Contains(t, text, "workspace ws-1")
	assert.Contains(t, text, "Overall: 82 / 100")
	assert.Contains(t, text, "Average Rating: 4.30")
	assert.Contains(t, text, "OPEN ALERTS")
	assert.Contains(t, text, "[HIGH] Average rating dropped")
}

func TestBuildDigestHTML(t *testing.T) {
	service := NewService(&config.Config{})

	html, err := service.buildDigestHTML(testDigest())
	require.NoError(t, err)

	assert.Contains(t, html, "Workspace ws-1")
	assert.Contains(t, html, "82 / 100")
	assert.Contains(t, html, "Average rating dropped")
}

func TestSendAlert_NoChannelsConfigured(t *testing.T) {
	service := NewService(&config.Config{})

	err := service.SendAlert(&models.ReviewAlert{
		Type:     models.AlertNegativeReview,
		Severity: models.SeverityHigh,
		Title:    "Negative review received",
	})
	assert.NoError(t, err)
}

func TestSendDigest_NoChannelsConfigured(t *testing.T) {
	service := NewService(&config.Config{})

	assert.NoError(t, service.SendDigest(testDigest()))
}
