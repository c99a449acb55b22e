package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

func seedReview(t *testing.T, reviews *store.MemoryReviews, workspaceID string, rating int, sentiment models.Sentiment, publishedAt time.Time) *models.Review {
	t.Helper()
	created, err := reviews.Create(context.Background(), &models.Review{
		WorkspaceID:      workspaceID,
		Platform:         models.PlatformGoogle,
		PlatformReviewID: uuid.NewString(),
		Rating:           rating,
		Sentiment:        sentiment,
		PublishedAt:      publishedAt,
	})
	require.NoError(t, err)
	return created
}

func TestCalculate_EmptyCorpusReturnsNil(t *testing.T) {
	scorer := NewScorer(store.NewMemoryReviews(), store.NewMemoryScores())

	score, err := scorer.Calculate(context.Background(), "ws-1", time.Now().UTC(), nil, nil)

	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestCalculate_Metrics(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scores := store.NewMemoryScores()
	scorer := NewScorer(reviews, scores)

	now := time.Now().UTC()
	workspaceID := "ws-1"
	seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.Add(-72*time.Hour))
	seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.Add(-48*time.Hour))
	seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.Add(-24*time.Hour))
	seedReview(t, reviews, workspaceID, 1, models.SentimentNegative, now.Add(-12*time.Hour))

	score, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, score)

	assert.Equal(t, 4, score.TotalReviews)
	assert.InDelta(t, 4.0, score.AverageRating, 0.0001)
	assert.Equal(t, 3, score.PositiveCount)
	assert.Equal(t, 0, score.NeutralCount)
	assert.Equal(t, 1, score.NegativeCount)
	assert.InDelta(t, 75.0, score.PositivePercentage, 0.0001)
	assert.InDelta(t, 0.0, score.ResponseRate, 0.0001)

	// rating 32 + sentiment 22.5 + response rate 0 + response time 10
	assert.Equal(t, 65, score.OverallScore)
	assert.Equal(t, models.DayStart(now), score.Date)
}

func TestOverallScore_Weighting(t *testing.T) {
	tests := []struct {
		name            string
		averageRating   float64
		positivePct     float64
		responseRate    float64
		avgResponseTime float64
		expected        int
	}{
		{name: "Perfect", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 0.5, expected: 100},
		{name: "No responses keeps max time score", averageRating: 5, positivePct: 100, responseRate: 0, avgResponseTime: 0, expected: 80},
		{name: "Responses within 4 hours", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 3, expected: 98},
		{name: "Responses within 12 hours", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 10, expected: 96},
		{name: "Responses within 24 hours", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 20, expected: 94},
		{name: "Responses within 48 hours", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 40, expected: 92},
		{name: "Slow responses score zero", averageRating: 5, positivePct: 100, responseRate: 100, avgResponseTime: 72, expected: 90},
		{name: "Worst case", averageRating: 1, positivePct: 0, responseRate: 0, avgResponseTime: 100, expected: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, overallScore(tt.averageRating, tt.positivePct, tt.responseRate, tt.avgResponseTime))
		})
	}
}

func TestCalculate_ScoreWithinBounds(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scorer := NewScorer(reviews, store.NewMemoryScores())

	now := time.Now().UTC()
	workspaceID := "ws-bounds"
	sentiments := map[int]models.Sentiment{
		1: models.SentimentNegative, 2: models.SentimentNegative,
		3: models.SentimentNeutral,
		4: models.SentimentPositive, 5: models.SentimentPositive,
	}
	for i := 0; i < 50; i++ {
		rating := i%5 + 1
		seedReview(t, reviews, workspaceID, rating, sentiments[rating], now.Add(-time.Duration(i)*time.Hour))
	}

	score, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, score.OverallScore, 0)
	assert.LessOrEqual(t, score.OverallScore, 100)
}

func TestCalculate_ResponseMetrics(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scorer := NewScorer(reviews, store.NewMemoryScores())

	now := time.Now().UTC()
	workspaceID := "ws-resp"

	published := now.Add(-48 * time.Hour)
	responded := published.Add(2 * time.Hour)
	first := seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, published)
	_, err := reviews.Update(context.Background(), first.ID, models.ReviewUpdate{
		HasResponse:  boolPtr(true),
		ResponseDate: &responded,
	})
	require.NoError(t, err)
	seedReview(t, reviews, workspaceID, 4, models.SentimentPositive, now.Add(-24*time.Hour))

	score, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, score.ResponseRate, 0.0001)
	assert.InDelta(t, 2.0, score.AvgResponseTime, 0.0001)
}

func TestCalculate_CumulativeUpToDate(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scorer := NewScorer(reviews, store.NewMemoryScores())

	now := time.Now().UTC()
	workspaceID := "ws-cum"
	seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.AddDate(0, 0, -10))
	seedReview(t, reviews, workspaceID, 1, models.SentimentNegative, now.AddDate(0, 0, -1))

	// A snapshot dated five days back must not see the newer review.
	score, err := scorer.Calculate(context.Background(), workspaceID, now.AddDate(0, 0, -5), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, score.TotalReviews)
	assert.InDelta(t, 5.0, score.AverageRating, 0.0001)
}

func TestCalculate_TrendsAgainstPriorSnapshot(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scores := store.NewMemoryScores()
	scorer := NewScorer(reviews, scores)

	now := time.Now().UTC()
	workspaceID := "ws-trend"

	_, err := scores.Upsert(context.Background(), &models.ReputationScore{
		WorkspaceID:        workspaceID,
		Date:               models.DayStart(now).AddDate(0, 0, -30),
		AverageRating:      4.5,
		TotalReviews:       10,
		PositivePercentage: 80,
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		seedReview(t, reviews, workspaceID, 4, models.SentimentPositive, now.Add(-time.Duration(i+1)*time.Hour))
	}

	score, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, -0.5, score.RatingTrend, 0.0001)
	assert.InDelta(t, 100.0, score.VolumeTrend, 0.0001)
	assert.InDelta(t, 20.0, score.SentimentTrend, 0.0001)
}

func TestCalculate_NoTrendWithoutPriorSnapshot(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scorer := NewScorer(reviews, store.NewMemoryScores())

	now := time.Now().UTC()
	seedReview(t, reviews, "ws-1", 3, models.SentimentNeutral, now.Add(-time.Hour))

	score, err := scorer.Calculate(context.Background(), "ws-1", now, nil, nil)
	require.NoError(t, err)

	assert.Zero(t, score.RatingTrend)
	assert.Zero(t, score.VolumeTrend)
	assert.Zero(t, score.SentimentTrend)
}

func TestCalculate_UpsertReplacesSameDay(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scores := store.NewMemoryScores()
	scorer := NewScorer(reviews, scores)

	now := time.Now().UTC()
	workspaceID := "ws-upsert"
	seedReview(t, reviews, workspaceID, 4, models.SentimentPositive, now.Add(-2*time.Hour))

	first, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	seedReview(t, reviews, workspaceID, 2, models.SentimentNegative, now.Add(-time.Hour))
	second, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.TotalReviews)

	all, err := scores.FindRange(context.Background(), models.ScoreKey{WorkspaceID: workspaceID}, now.AddDate(0, 0, -1), now)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCalculate_TopTopicsBySentiment(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scorer := NewScorer(reviews, store.NewMemoryScores())

	now := time.Now().UTC()
	workspaceID := "ws-topics"

	positive := seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.Add(-3*time.Hour))
	_, err := reviews.Update(context.Background(), positive.ID, models.ReviewUpdate{Topics: []string{"food", "service"}})
	require.NoError(t, err)

	negative := seedReview(t, reviews, workspaceID, 1, models.SentimentNegative, now.Add(-2*time.Hour))
	_, err = reviews.Update(context.Background(), negative.ID, models.ReviewUpdate{Topics: []string{"cleanliness"}})
	require.NoError(t, err)

	score, err := scorer.Calculate(context.Background(), workspaceID, now, nil, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"food", "service"}, score.TopPositiveTopics)
	assert.Equal(t, []string{"cleanliness"}, score.TopNegativeTopics)
}

func TestCurrent_MaterializesTodaySnapshot(t *testing.T) {
	reviews := store.NewMemoryReviews()
	scores := store.NewMemoryScores()
	scorer := NewScorer(reviews, scores)

	now := time.Now().UTC()
	workspaceID := "ws-current"
	seedReview(t, reviews, workspaceID, 5, models.SentimentPositive, now.Add(-time.Hour))

	score, err := scorer.Current(context.Background(), workspaceID)
	require.NoError(t, err)
	require.NotNil(t, score)

	stored, err := scores.FindOne(context.Background(), models.ScoreKey{WorkspaceID: workspaceID, Date: models.DayStart(now)})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, score.ID, stored.ID)
}

func TestTrends_ReturnsRangeAscending(t *testing.T) {
	scores := store.NewMemoryScores()
	scorer := NewScorer(store.NewMemoryReviews(), scores)

	now := time.Now().UTC()
	workspaceID := "ws-range"
	for _, daysAgo := range []int{1, 5, 3} {
		_, err := scores.Upsert(context.Background(), &models.ReputationScore{
			WorkspaceID: workspaceID,
			Date:        models.DayStart(now).AddDate(0, 0, -daysAgo),
		})
		require.NoError(t, err)
	}

	trends, err := scorer.Trends(context.Background(), workspaceID, now.AddDate(0, 0, -7), now, nil, nil)
	require.NoError(t, err)

	require.Len(t, trends, 3)
	assert.True(t, trends[0].Date.Before(trends[1].Date))
	assert.True(t, trends[1].Date.Before(trends[2].Date))
}

func boolPtr(b bool) *bool { return &b }
