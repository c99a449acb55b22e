package analytics

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

func addReview(t *testing.T, reviews *store.MemoryReviews, review models.Review) *models.Review {
	t.Helper()
	if review.Platform == "" {
		review.Platform = models.PlatformGoogle
	}
	review.PlatformReviewID = uuid.NewString()
	created, err := reviews.Create(context.Background(), &review)
	require.NoError(t, err)
	return created
}

func TestOverview(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 3, Sentiment: models.SentimentNeutral, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 1, Sentiment: models.SentimentNegative, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-other", Rating: 1, Sentiment: models.SentimentNegative, PublishedAt: now})

	overview, err := aggregator.Overview(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, overview.TotalReviews)
	assert.InDelta(t, 3.0, overview.AverageRating, 0.0001)
	assert.Equal(t, 1, overview.Positive)
	assert.Equal(t, 1, overview.Neutral)
	assert.Equal(t, 1, overview.Negative)
}

func TestOverview_EmptyCorpus(t *testing.T) {
	aggregator := NewAggregator(store.NewMemoryReviews())

	overview, err := aggregator.Overview(context.Background(), models.ReviewFilter{WorkspaceID: "ws-empty"})
	require.NoError(t, err)

	assert.Zero(t, overview.TotalReviews)
	assert.Zero(t, overview.AverageRating)
}

func TestRatingDistribution_ZeroFilled(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 2, PublishedAt: now})

	distribution, err := aggregator.RatingDistribution(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 0, 4: 0, 5: 2}, distribution)

	total := 0
	for _, count := range distribution {
		total += count
	}
	assert.Equal(t, 3, total)
}

func TestSentimentTrends_WeekBuckets(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)

	thisWeek := models.WeekStart(time.Now().UTC()).Add(6 * time.Hour)
	lastWeek := thisWeek.AddDate(0, 0, -7)

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, PublishedAt: lastWeek})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 1, Sentiment: models.SentimentNegative, PublishedAt: lastWeek.Add(time.Hour)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 4, Sentiment: models.SentimentPositive, PublishedAt: thisWeek})

	trends, err := aggregator.SentimentTrends(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	require.Len(t, trends, 2)
	assert.Equal(t, models.WeekStart(lastWeek), trends[0].WeekStart)
	assert.Equal(t, 1, trends[0].Positive)
	assert.Equal(t, 1, trends[0].Negative)
	assert.Equal(t, models.WeekStart(thisWeek), trends[1].WeekStart)
	assert.Equal(t, 1, trends[1].Positive)
}

func TestTopTopics_SortedWithSentimentSplit(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, Topics: []string{"food", "service"}, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 1, Sentiment: models.SentimentNegative, Topics: []string{"food"}, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 3, Sentiment: models.SentimentNeutral, Topics: []string{"food"}, PublishedAt: now})

	topics, err := aggregator.TopTopics(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	require.Len(t, topics, 2)
	assert.Equal(t, TopicStat{Topic: "food", Total: 3, Positive: 1, Negative: 1}, topics[0])
	assert.Equal(t, TopicStat{Topic: "service", Total: 1, Positive: 1, Negative: 0}, topics[1])
}

func TestPlatformBreakdown(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformGoogle, Rating: 5, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformGoogle, Rating: 3, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformYelp, Rating: 2, PublishedAt: now})

	platforms, err := aggregator.PlatformBreakdown(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	require.Len(t, platforms, 2)
	assert.Equal(t, models.PlatformGoogle, platforms[0].Platform)
	assert.Equal(t, 2, platforms[0].Count)
	assert.InDelta(t, 4.0, platforms[0].AverageRating, 0.0001)
	assert.Equal(t, models.PlatformYelp, platforms[1].Platform)
}

func TestResponseMetrics(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	published := now.Add(-10 * time.Hour)
	responded := published.Add(4 * time.Hour)
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, HasResponse: true, ResponseDate: &responded, PublishedAt: published})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 4, PublishedAt: now})

	metrics, err := aggregator.ResponseMetrics(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.Total)
	assert.Equal(t, 1, metrics.Responded)
	assert.InDelta(t, 50.0, metrics.ResponseRate, 0.0001)
	assert.InDelta(t, 4.0, metrics.AvgResponseTime, 0.0001)
}

func TestVolumeTrends_ZeroFilledDaily(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	today := models.DayStart(now)
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 4, PublishedAt: today.Add(time.Hour)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 4, PublishedAt: today.Add(2 * time.Hour)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 3, PublishedAt: today.AddDate(0, 0, -3).Add(time.Hour)})

	points, err := aggregator.VolumeTrends(context.Background(), "ws-1", 7)
	require.NoError(t, err)

	require.Len(t, points, 7)
	assert.Equal(t, models.DayStart(now).AddDate(0, 0, -6), points[0].Date)
	assert.Equal(t, models.DayStart(now), points[6].Date)

	total := 0
	for _, point := range points {
		total += point.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, points[6].Count)
}

func TestVolumeTrends_DefaultWindow(t *testing.T) {
	aggregator := NewAggregator(store.NewMemoryReviews())

	points, err := aggregator.VolumeTrends(context.Background(), "ws-1", 0)
	require.NoError(t, err)

	assert.Len(t, points, 30)
	for _, point := range points {
		assert.Zero(t, point.Count)
	}
}

func TestComparison(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	// Previous window: two 5-star reviews.
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, PublishedAt: now.AddDate(0, 0, -10)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, PublishedAt: now.AddDate(0, 0, -9)})
	// Current window: three reviews averaging 3.
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, PublishedAt: now.AddDate(0, 0, -3)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 3, Sentiment: models.SentimentNeutral, PublishedAt: now.AddDate(0, 0, -2)})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 1, Sentiment: models.SentimentNegative, PublishedAt: now.AddDate(0, 0, -1)})

	comparison, err := aggregator.Comparison(context.Background(), "ws-1", 7)
	require.NoError(t, err)

	assert.Equal(t, 7, comparison.Days)
	assert.Equal(t, 3, comparison.Current.TotalReviews)
	assert.Equal(t, 2, comparison.Previous.TotalReviews)
	assert.Equal(t, 1, comparison.TotalDelta)
	assert.InDelta(t, -2.0, comparison.RatingDelta, 0.0001)
	assert.Equal(t, -1, comparison.PositiveDelta)
	assert.Equal(t, 1, comparison.NegativeDelta)
}

func TestDashboard_ComposesAllViews(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Rating: 5, Sentiment: models.SentimentPositive, Topics: []string{"service"}, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformYelp, Rating: 1, Sentiment: models.SentimentNegative, Topics: []string{"speed"}, PublishedAt: now})

	dashboard, err := aggregator.Dashboard(context.Background(), models.ReviewFilter{WorkspaceID: "ws-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, dashboard.Overview.TotalReviews)
	assert.Equal(t, 1, dashboard.RatingDistribution[5])
	assert.Len(t, dashboard.SentimentTrends, 1)
	assert.Len(t, dashboard.TopTopics, 2)
	assert.Len(t, dashboard.Platforms, 2)
	assert.Equal(t, 2, dashboard.ResponseMetrics.Total)
}

func TestFilter_PlatformAndRating(t *testing.T) {
	reviews := store.NewMemoryReviews()
	aggregator := NewAggregator(reviews)
	now := time.Now().UTC()

	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformGoogle, Rating: 5, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformYelp, Rating: 5, PublishedAt: now})
	addReview(t, reviews, models.Review{WorkspaceID: "ws-1", Platform: models.PlatformYelp, Rating: 2, PublishedAt: now})

	minRating := 4
	overview, err := aggregator.Overview(context.Background(), models.ReviewFilter{
		WorkspaceID: "ws-1",
		Platform:    models.StrPtr(models.PlatformYelp),
		MinRating:   &minRating,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, overview.TotalReviews)
}
