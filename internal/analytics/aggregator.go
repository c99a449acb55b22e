package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Overview summarizes a filtered review set.
type Overview struct {
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	Positive      int     `json:"positive"`
	Neutral       int     `json:"neutral"`
	Negative      int     `json:"negative"`
}

// WeekBucket reports sentiment counts for one calendar week. Weeks start on
// the most recent Sunday on or before each review's publish date.
type WeekBucket struct {
	WeekStart time.Time `json:"week_start"`
	Positive  int       `json:"positive"`
	Neutral   int       `json:"neutral"`
	Negative  int       `json:"negative"`
}

// TopicStat reports how often a topic appears, split by sentiment.
type TopicStat struct {
	Topic    string `json:"topic"`
	Total    int    `json:"total"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

// PlatformStat reports per-platform volume and average rating.
type PlatformStat struct {
	Platform      string  `json:"platform"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// ResponseMetrics reports response coverage and latency.
type ResponseMetrics struct {
	Total           int     `json:"total"`
	Responded       int     `json:"responded"`
	ResponseRate    float64 `json:"response_rate"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// VolumePoint is one day of review volume.
type VolumePoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Comparison holds trailing-vs-preceding window overviews and signed deltas.
type Comparison struct {
	Days          int      `json:"days"`
	Current       Overview `json:"current"`
	Previous      Overview `json:"previous"`
	TotalDelta    int      `json:"total_delta"`
	RatingDelta   float64  `json:"rating_delta"`
	PositiveDelta int      `json:"positive_delta"`
	NegativeDelta int      `json:"negative_delta"`
}

// Dashboard composes the standard aggregate views for one filter.
type Dashboard struct {
	Overview           Overview        `json:"overview"`
	RatingDistribution map[int]int     `json:"rating_distribution"`
	SentimentTrends    []WeekBucket    `json:"sentiment_trends"`
	TopTopics          []TopicStat     `json:"top_topics"`
	Platforms          []PlatformStat  `json:"platforms"`
	ResponseMetrics    ResponseMetrics `json:"response_metrics"`
}

const (
	topTopicsLimit    = 10
	defaultVolumeDays = 30
)

// Aggregator builds read-only dashboard views from the review corpus.
type Aggregator struct {
	reviews store.ReviewStore
}

// NewAggregator creates an aggregator backed by the given review store.
func NewAggregator(reviews store.ReviewStore) *Aggregator {
	return &Aggregator{reviews: reviews}
}

// Overview returns total count, average rating and sentiment breakdown.
// An empty set yields zeroed totals, never an error.
func (a *Aggregator) Overview(ctx context.Context, filter models.ReviewFilter) (Overview, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to load reviews: %w", err)
	}
	return buildOverview(reviews), nil
}

func buildOverview(reviews []models.Review) Overview {
	overview := Overview{TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return overview
	}

	var ratingSum float64
	for _, review := range reviews {
		ratingSum += float64(review.Rating)
		switch review.Sentiment {
		case models.SentimentPositive:
			overview.Positive++
		case models.SentimentNegative:
			overview.Negative++
		default:
			overview.Neutral++
		}
	}
	overview.AverageRating = ratingSum / float64(len(reviews))
	return overview
}

// RatingDistribution returns counts per star rating 1-5, zero-filled for
// absent buckets so the values always sum to the filtered total.
func (a *Aggregator) RatingDistribution(ctx context.Context, filter models.ReviewFilter) (map[int]int, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	return buildDistribution(reviews), nil
}

func buildDistribution(reviews []models.Review) map[int]int {
	distribution := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, review := range reviews {
		if review.Rating >= 1 && review.Rating <= 5 {
			distribution[review.Rating]++
		}
	}
	return distribution
}

// SentimentTrends groups reviews into week buckets, oldest first.
func (a *Aggregator) SentimentTrends(ctx context.Context, filter models.ReviewFilter) ([]WeekBucket, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	buckets := make(map[time.Time]*WeekBucket)
	for _, review := range reviews {
		week := models.WeekStart(review.PublishedAt)
		bucket, ok := buckets[week]
		if !ok {
			bucket = &WeekBucket{WeekStart: week}
			buckets[week] = bucket
		}
		switch review.Sentiment {
		case models.SentimentPositive:
			bucket.Positive++
		case models.SentimentNegative:
			bucket.Negative++
		default:
			bucket.Neutral++
		}
	}

	trends := make([]WeekBucket, 0, len(buckets))
	for _, bucket := range buckets {
		trends = append(trends, *bucket)
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].WeekStart.Before(trends[j].WeekStart)
	})
	return trends, nil
}

// TopTopics returns per-topic totals with positive/negative splits, sorted by
// total descending, top 10.
func (a *Aggregator) TopTopics(ctx context.Context, filter models.ReviewFilter) ([]TopicStat, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	stats := make(map[string]*TopicStat)
	for _, review := range reviews {
		for _, topic := range review.Topics {
			stat, ok := stats[topic]
			if !ok {
				stat = &TopicStat{Topic: topic}
				stats[topic] = stat
			}
			stat.Total++
			switch review.Sentiment {
			case models.SentimentPositive:
				stat.Positive++
			case models.SentimentNegative:
				stat.Negative++
			}
		}
	}

	topics := make([]TopicStat, 0, len(stats))
	for _, stat := range stats {
		topics = append(topics, *stat)
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Total != topics[j].Total {
			return topics[i].Total > topics[j].Total
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > topTopicsLimit {
		topics = topics[:topTopicsLimit]
	}
	return topics, nil
}

// PlatformBreakdown returns per-platform volume and average rating, busiest
// platform first.
func (a *Aggregator) PlatformBreakdown(ctx context.Context, filter models.ReviewFilter) ([]PlatformStat, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, review := range reviews {
		counts[review.Platform]++
		sums[review.Platform] += float64(review.Rating)
	}

	platforms := make([]PlatformStat, 0, len(counts))
	for platform, count := range counts {
		platforms = append(platforms, PlatformStat{
			Platform:      platform,
			Count:         count,
			AverageRating: sums[platform] / float64(count),
		})
	}
	sort.Slice(platforms, func(i, j int) bool {
		if platforms[i].Count != platforms[j].Count {
			return platforms[i].Count > platforms[j].Count
		}
		return platforms[i].Platform < platforms[j].Platform
	})
	return platforms, nil
}

// ResponseMetrics returns response rate and average response time in hours
// over reviews that have both a response and a response date.
func (a *Aggregator) ResponseMetrics(ctx context.Context, filter models.ReviewFilter) (ResponseMetrics, error) {
	reviews, err := a.reviews.FindMany(ctx, filter)
	if err != nil {
		return ResponseMetrics{}, fmt.Errorf("failed to load reviews: %w", err)
	}

	metrics := ResponseMetrics{Total: len(reviews)}
	var hours float64
	var samples int
	for _, review := range reviews {
		if !review.HasResponse {
			continue
		}
		metrics.Responded++
		if review.ResponseDate != nil {
			hours += review.ResponseDate.Sub(review.PublishedAt).Hours()
			samples++
		}
	}
	if metrics.Total > 0 {
		metrics.ResponseRate = float64(metrics.Responded) / float64(metrics.Total) * 100
	}
	if samples > 0 {
		metrics.AvgResponseTime = hours / float64(samples)
	}
	return metrics, nil
}

// VolumeTrends returns daily review counts over the trailing window,
// zero-filled per day, oldest first. days defaults to 30.
func (a *Aggregator) VolumeTrends(ctx context.Context, workspaceID string, days int) ([]VolumePoint, error) {
	if days <= 0 {
		days = defaultVolumeDays
	}

	now := time.Now().UTC()
	start := models.DayStart(now).AddDate(0, 0, -(days - 1))
	reviews, err := a.reviews.FindMany(ctx, models.ReviewFilter{
		WorkspaceID:    workspaceID,
		PublishedAfter: &start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	counts := make(map[time.Time]int)
	for _, review := range reviews {
		counts[models.DayStart(review.PublishedAt)]++
	}

	points := make([]VolumePoint, 0, days)
	for day := start; !day.After(models.DayStart(now)); day = day.AddDate(0, 0, 1) {
		points = append(points, VolumePoint{Date: day, Count: counts[day]})
	}
	return points, nil
}

// Comparison returns overview metrics for the trailing N days against the
// preceding N days, with signed deltas.
func (a *Aggregator) Comparison(ctx context.Context, workspaceID string, days int) (Comparison, error) {
	if days <= 0 {
		days = defaultVolumeDays
	}

	now := time.Now().UTC()
	currentStart := now.AddDate(0, 0, -days)
	previousStart := now.AddDate(0, 0, -2*days)

	current, err := a.windowOverview(ctx, workspaceID, currentStart, now)
	if err != nil {
		return Comparison{}, err
	}
	previous, err := a.windowOverview(ctx, workspaceID, previousStart, currentStart)
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		Days:          days,
		Current:       current,
		Previous:      previous,
		TotalDelta:    current.TotalReviews - previous.TotalReviews,
		RatingDelta:   current.AverageRating - previous.AverageRating,
		PositiveDelta: current.Positive - previous.Positive,
		NegativeDelta: current.Negative - previous.Negative,
	}, nil
}

func (a *Aggregator) windowOverview(ctx context.Context, workspaceID string, from, to time.Time) (Overview, error) {
	reviews, err := a.reviews.FindMany(ctx, models.ReviewFilter{
		WorkspaceID:     workspaceID,
		PublishedAfter:  &from,
		PublishedBefore: &to,
	})
	if err != nil {
		return Overview{}, fmt.Errorf("failed to load reviews: %w", err)
	}
	return buildOverview(reviews), nil
}

// Dashboard composes overview, distribution, trends, topics, platform and
// response views for one filter with a single review load per view.
func (a *Aggregator) Dashboard(ctx context.Context, filter models.ReviewFilter) (*Dashboard, error) {
	overview, err := a.Overview(ctx, filter)
	if err != nil {
		return nil, err
	}
	distribution, err := a.RatingDistribution(ctx, filter)
	if err != nil {
		return nil, err
	}
	trends, err := a.SentimentTrends(ctx, filter)
	if err != nil {
		return nil, err
	}
	topics, err := a.TopTopics(ctx, filter)
	if err != nil {
		return nil, err
	}
	platforms, err := a.PlatformBreakdown(ctx, filter)
	if err != nil {
		return nil, err
	}
	responses, err := a.ResponseMetrics(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Overview:           overview,
		RatingDistribution: distribution,
		SentimentTrends:    trends,
		TopTopics:          topics,
		Platforms:          platforms,
		ResponseMetrics:    responses,
	}, nil
}
