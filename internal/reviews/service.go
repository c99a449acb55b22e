package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/sentiment"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// ErrInvalidInput marks malformed parameters rejected before any computation.
var ErrInvalidInput = errors.New("invalid input")

// Statistics is the summary returned by the statistics operation.
type Statistics struct {
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	Positive      int     `json:"positive"`
	Neutral       int     `json:"neutral"`
	Negative      int     `json:"negative"`
	ResponseRate  float64 `json:"response_rate"`
}

// Service owns the review ingestion path: creation, sentiment attachment and
// the synchronous negative-review check, plus the CRUD surface consumed by
// the transport layer.
type Service struct {
	reviews  store.ReviewStore
	analyzer *sentiment.Analyzer
	detector *alerts.Detector
}

// NewService creates a review service.
func NewService(reviews store.ReviewStore, analyzer *sentiment.Analyzer, detector *alerts.Detector) *Service {
	return &Service{reviews: reviews, analyzer: analyzer, detector: detector}
}

// Create ingests a review: stores it (Conflict on a duplicate platform review
// id), attaches sentiment, and runs the negative-review check. The check is
// best-effort; its failure does not fail the ingestion.
func (s *Service) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	if review.Rating < 1 || review.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", ErrInvalidInput)
	}
	if review.WorkspaceID == "" || review.Platform == "" || review.PlatformReviewID == "" {
		return nil, fmt.Errorf("workspace, platform and platform review id are required: %w", ErrInvalidInput)
	}

	created, err := s.reviews.Create(ctx, review)
	if err != nil {
		return nil, err
	}

	analyzed, err := s.analyzer.UpdateReviewSentiment(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach sentiment: %w", err)
	}

	if _, err := s.detector.CheckNegativeReview(ctx, created.ID); err != nil {
		logrus.Errorf("Negative review check failed for %s: %v", created.ID, err)
	}

	logrus.Infof("Ingested review %s (%s, %d stars) for workspace %s", created.ID, created.Platform, created.Rating, created.WorkspaceID)
	return analyzed, nil
}

// Get returns one review by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Review, error) {
	return s.reviews.FindOne(ctx, id)
}

// List returns reviews matching the filter.
func (s *Service) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.reviews.FindMany(ctx, filter)
}

func validateFilter(filter models.ReviewFilter) error {
	if filter.MinRating != nil && (*filter.MinRating < 1 || *filter.MinRating > 5) {
		return fmt.Errorf("min rating out of range: %w", ErrInvalidInput)
	}
	if filter.MaxRating != nil && (*filter.MaxRating < 1 || *filter.MaxRating > 5) {
		return fmt.Errorf("max rating out of range: %w", ErrInvalidInput)
	}
	if filter.MinRating != nil && filter.MaxRating != nil && *filter.MinRating > *filter.MaxRating {
		return fmt.Errorf("min rating above max rating: %w", ErrInvalidInput)
	}
	return nil
}

// Reanalyze recomputes sentiment, topics and keywords for one review. Useful
// after dictionary changes or for reviews imported before analysis existed.
func (s *Service) Reanalyze(ctx context.Context, id string) (*models.Review, error) {
	return s.analyzer.UpdateReviewSentiment(ctx, id)
}

// Update applies a partial update to one review.
func (s *Service) Update(ctx context.Context, id string, fields models.ReviewUpdate) (*models.Review, error) {
	return s.reviews.Update(ctx, id, fields)
}

// Delete removes one review.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.reviews.Delete(ctx, id)
}

// BulkUpdateStatus sets the workflow status on each listed review. Stops at
// the first failure.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status models.ReviewStatus) ([]models.Review, error) {
	updated := make([]models.Review, 0, len(ids))
	for _, id := range ids {
		review, err := s.reviews.Update(ctx, id, models.ReviewUpdate{Status: &status})
		if err != nil {
			return updated, err
		}
		updated = append(updated, *review)
	}
	return updated, nil
}

// Statistics summarizes the filtered review set. Empty sets return zeroes.
func (s *Service) Statistics(ctx context.Context, filter models.ReviewFilter) (Statistics, error) {
	if err := validateFilter(filter); err != nil {
		return Statistics{}, err
	}
	reviews, err := s.reviews.FindMany(ctx, filter)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to load reviews: %w", err)
	}

	stats := Statistics{TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return stats, nil
	}

	var ratingSum float64
	var responded int
	for _, review := range reviews {
		ratingSum += float64(review.Rating)
		switch review.Sentiment {
		case models.SentimentPositive:
			stats.Positive++
		case models.SentimentNegative:
			stats.Negative++
		default:
			stats.Neutral++
		}
		if review.HasResponse {
			responded++
		}
	}
	stats.AverageRating = ratingSum / float64(len(reviews))
	stats.ResponseRate = float64(responded) / float64(len(reviews)) * 100
	return stats, nil
}
