package reputation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Scorer computes daily 0-100 reputation snapshots from the review corpus.
type Scorer struct {
	reviews store.ReviewStore
	scores  store.ScoreStore
}

// NewScorer creates a scorer backed by the given stores.
func NewScorer(reviews store.ReviewStore, scores store.ScoreStore) *Scorer {
	return &Scorer{reviews: reviews, scores: scores}
}

const (
	topTopicLimit   = 5
	topKeywordLimit = 10
	trendLookback   = 30 // days
)

// Calculate builds and upserts the snapshot for the given key. The review set
// is cumulative up to the end of date's day, not a single-day window. Returns
// nil (and writes nothing) when no reviews match.
func (s *Scorer) Calculate(ctx context.Context, workspaceID string, date time.Time, platform, locationID *string) (*models.ReputationScore, error) {
	end := models.DayEnd(date)
	reviews, err := s.reviews.FindMany(ctx, models.ReviewFilter{
		WorkspaceID:     workspaceID,
		Platform:        platform,
		LocationID:      locationID,
		PublishedBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	if len(reviews) == 0 {
		logrus.Debugf("No reviews for workspace %s up to %s, skipping snapshot", workspaceID, end.Format("2006-01-02"))
		return nil, nil
	}

	total := len(reviews)
	var ratingSum float64
	var positive, neutral, negative, responded int
	var responseHours float64
	var responseSamples int

	for _, review := range reviews {
		ratingSum += float64(review.Rating)
		switch review.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		default:
			neutral++
		}
		if review.HasResponse {
			responded++
			if review.ResponseDate != nil {
				responseHours += review.ResponseDate.Sub(review.PublishedAt).Hours()
				responseSamples++
			}
		}
	}

	averageRating := ratingSum / float64(total)
	positivePct := float64(positive) / float64(total) * 100
	responseRate := float64(responded) / float64(total) * 100
	avgResponseTime := 0.0
	if responseSamples > 0 {
		avgResponseTime = responseHours / float64(responseSamples)
	}

	score := &models.ReputationScore{
		WorkspaceID:        workspaceID,
		Date:               models.DayStart(date),
		Platform:           platform,
		LocationID:         locationID,
		OverallScore:       overallScore(averageRating, positivePct, responseRate, avgResponseTime),
		AverageRating:      averageRating,
		TotalReviews:       total,
		PositiveCount:      positive,
		NeutralCount:       neutral,
		NegativeCount:      negative,
		PositivePercentage: positivePct,
		ResponseRate:       responseRate,
		AvgResponseTime:    avgResponseTime,
		TopPositiveTopics:  topTopics(reviews, models.SentimentPositive),
		TopNegativeTopics:  topTopics(reviews, models.SentimentNegative),
		CommonKeywords:     commonKeywords(reviews),
	}

	prior, err := s.scores.FindOne(ctx, models.ScoreKey{
		WorkspaceID: workspaceID,
		Date:        models.DayStart(date).AddDate(0, 0, -trendLookback),
		Platform:    platform,
		LocationID:  locationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prior snapshot: %w", err)
	}
	if prior != nil {
		score.RatingTrend = averageRating - prior.AverageRating
		if prior.TotalReviews > 0 {
			score.VolumeTrend = float64(total-prior.TotalReviews) / float64(prior.TotalReviews) * 100
		}
		score.SentimentTrend = positivePct - prior.PositivePercentage
	}

	stored, err := s.scores.Upsert(ctx, score)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	logrus.Infof("Computed reputation snapshot for workspace %s: score=%d over %d reviews", workspaceID, stored.OverallScore, total)
	return stored, nil
}

// overallScore combines the weighted sub-scores: rating 40, sentiment 30,
// response rate 20, response time 10. When avgResponseTime is exactly 0 the
// time component stays at its maximum; with zero responses the response-rate
// component is already 0, so the weighting is preserved as published.
func overallScore(averageRating, positivePct, responseRate, avgResponseTime float64) int {
	ratingScore := averageRating / 5 * 40
	sentimentScore := positivePct / 100 * 30
	responseRateScore := responseRate / 100 * 20

	responseTimeScore := 10.0
	if avgResponseTime > 0 {
		switch {
		case avgResponseTime <= 1:
			responseTimeScore = 10
		case avgResponseTime <= 4:
			responseTimeScore = 8
		case avgResponseTime <= 12:
			responseTimeScore = 6
		case avgResponseTime <= 24:
			responseTimeScore = 4
		case avgResponseTime <= 48:
			responseTimeScore = 2
		default:
			responseTimeScore = 0
		}
	}

	return int(math.Round(ratingScore + sentimentScore + responseRateScore + responseTimeScore))
}

// topTopics ranks topics by how many reviews with the given sentiment mention
// them, top 5, count descending with alphabetical tie-break.
func topTopics(reviews []models.Review, sentiment models.Sentiment) []string {
	counts := make(map[string]int)
	for _, review := range reviews {
		if review.Sentiment != sentiment {
			continue
		}
		for _, topic := range review.Topics {
			counts[topic]++
		}
	}
	return topN(counts, topTopicLimit)
}

// commonKeywords ranks keyword frequency across all matched reviews, top 10.
func commonKeywords(reviews []models.Review) []string {
	counts := make(map[string]int)
	for _, review := range reviews {
		for _, keyword := range review.Keywords {
			counts[keyword]++
		}
	}
	return topN(counts, topKeywordLimit)
}

func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Current returns today's workspace-wide snapshot, computing and storing it
// first when absent.
func (s *Scorer) Current(ctx context.Context, workspaceID string) (*models.ReputationScore, error) {
	now := time.Now().UTC()
	existing, err := s.scores.FindOne(ctx, models.ScoreKey{
		WorkspaceID: workspaceID,
		Date:        models.DayStart(now),
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.Calculate(ctx, workspaceID, now, nil, nil)
}

// Trends returns stored snapshots for the key in [from, to], date ascending.
func (s *Scorer) Trends(ctx context.Context, workspaceID string, from, to time.Time, platform, locationID *string) ([]models.ReputationScore, error) {
	return s.scores.FindRange(ctx, models.ScoreKey{
		WorkspaceID: workspaceID,
		Platform:    platform,
		LocationID:  locationID,
	}, from, to)
}
