package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/notifications"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Detection thresholds. These are fixed heuristics, not statistical tests.
const (
	dedupWindow = 24 * time.Hour

	ratingDropWindow   = 30 // days per comparison window
	ratingDropMin      = 0.5
	ratingDropCritical = 1.0

	spikeMultiplier         = 3.0
	spikeCriticalMultiplier = 5.0
	spikeMinReviews         = 5
	spikeBaselineDays       = 7

	shiftWindow     = 7 // days per comparison window
	shiftMinPP      = 20.0
	shiftCriticalPP = 40.0
)

// Detector raises alerts on anomalous review patterns. All checks are
// idempotent: within the dedup window a repeated trigger returns the
// existing ACTIVE alert instead of creating another.
type Detector struct {
	reviews  store.ReviewStore
	alerts   store.AlertStore
	notifier notifications.Notifier
}

// NewDetector creates a detector. notifier may be nil to disable delivery.
func NewDetector(reviews store.ReviewStore, alerts store.AlertStore, notifier notifications.Notifier) *Detector {
	return &Detector{reviews: reviews, alerts: alerts, notifier: notifier}
}

// CheckNegativeReview raises an alert for a single review rated 2 stars or
// below. Invoked synchronously right after ingestion.
func (d *Detector) CheckNegativeReview(ctx context.Context, reviewID string) (*models.ReviewAlert, error) {
	review, err := d.reviews.FindOne(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Rating > 2 {
		return nil, nil
	}

	severity := models.SeverityHigh
	if review.Rating == 1 {
		severity = models.SeverityCritical
	}

	return d.raise(ctx, &models.ReviewAlert{
		WorkspaceID: review.WorkspaceID,
		ReviewID:    review.ID,
		Type:        models.AlertNegativeReview,
		Severity:    severity,
		Title:       "Negative review received",
		Description: fmt.Sprintf("%d-star review from %s on %s", review.Rating, review.ReviewerName, review.Platform),
		Metadata: map[string]string{
			"platform": review.Platform,
			"rating":   fmt.Sprintf("%d", review.Rating),
		},
	})
}

// CheckRatingDrop compares the trailing 30-day mean rating against the
// preceding 30-day window and alerts when the drop is at least half a star.
func (d *Detector) CheckRatingDrop(ctx context.Context, workspaceID string, platform *string) (*models.ReviewAlert, error) {
	now := time.Now().UTC()
	recentStart := now.AddDate(0, 0, -ratingDropWindow)
	previousStart := now.AddDate(0, 0, -2*ratingDropWindow)

	recent, err := d.loadWindow(ctx, workspaceID, platform, recentStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := d.loadWindow(ctx, workspaceID, platform, previousStart, recentStart)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 || len(previous) == 0 {
		return nil, nil
	}

	drop := meanRating(previous) - meanRating(recent)
	if drop < ratingDropMin {
		return nil, nil
	}

	severity := models.SeverityHigh
	if drop >= ratingDropCritical {
		severity = models.SeverityCritical
	}

	return d.raise(ctx, &models.ReviewAlert{
		WorkspaceID:     workspaceID,
		Type:            models.AlertRatingDrop,
		Severity:        severity,
		Title:           "Average rating dropped",
		Description:     fmt.Sprintf("Average rating fell by %.1f stars over the last %d days (%.2f -> %.2f)", drop, ratingDropWindow, meanRating(previous), meanRating(recent)),
		AffectedReviews: len(recent),
		RatingDrop:      drop,
	})
}

// CheckReviewSpike compares the trailing 24-hour review count against the
// average daily count over the preceding 7 days.
func (d *Detector) CheckReviewSpike(ctx context.Context, workspaceID string) (*models.ReviewAlert, error) {
	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	baselineStart := dayAgo.AddDate(0, 0, -spikeBaselineDays)

	trailing, err := d.loadWindow(ctx, workspaceID, nil, dayAgo, now)
	if err != nil {
		return nil, err
	}
	baseline, err := d.loadWindow(ctx, workspaceID, nil, baselineStart, dayAgo)
	if err != nil {
		return nil, err
	}

	count := len(trailing)
	dailyAverage := float64(len(baseline)) / float64(spikeBaselineDays)
	if float64(count) < spikeMultiplier*dailyAverage || count < spikeMinReviews {
		return nil, nil
	}

	severity := models.SeverityHigh
	if float64(count) >= spikeCriticalMultiplier*dailyAverage {
		severity = models.SeverityCritical
	}

	return d.raise(ctx, &models.ReviewAlert{
		WorkspaceID:     workspaceID,
		Type:            models.AlertReviewSpike,
		Severity:        severity,
		Title:           "Unusual review volume",
		Description:     fmt.Sprintf("%d reviews in the last 24 hours vs a daily average of %.1f", count, dailyAverage),
		AffectedReviews: count,
		Metadata: map[string]string{
			"daily_average": fmt.Sprintf("%.2f", dailyAverage),
		},
	})
}

// CheckSentimentShift compares the negative-review share of the trailing
// 7 days against the preceding 7 days, in percentage points.
func (d *Detector) CheckSentimentShift(ctx context.Context, workspaceID string) (*models.ReviewAlert, error) {
	now := time.Now().UTC()
	recentStart := now.AddDate(0, 0, -shiftWindow)
	previousStart := now.AddDate(0, 0, -2*shiftWindow)

	recent, err := d.loadWindow(ctx, workspaceID, nil, recentStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := d.loadWindow(ctx, workspaceID, nil, previousStart, recentStart)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 || len(previous) == 0 {
		return nil, nil
	}

	increase := negativeShare(recent) - negativeShare(previous)
	if increase < shiftMinPP {
		return nil, nil
	}

	severity := models.SeverityHigh
	if increase >= shiftCriticalPP {
		severity = models.SeverityCritical
	}

	return d.raise(ctx, &models.ReviewAlert{
		WorkspaceID:     workspaceID,
		Type:            models.AlertSentimentShift,
		Severity:        severity,
		Title:           "Negative sentiment rising",
		Description:     fmt.Sprintf("Negative review share rose by %.0f percentage points week over week", increase),
		AffectedReviews: len(recent),
	})
}

// RunChecks executes the population-level checks (rating drop, review spike,
// sentiment shift) and returns the alerts created or matched. Individual
// check failures are logged and skipped so one failing window scan does not
// stop the sweep.
func (d *Detector) RunChecks(ctx context.Context, workspaceID string) ([]models.ReviewAlert, error) {
	logrus.Infof("Running alert checks for workspace %s", workspaceID)

	checks := []func() (*models.ReviewAlert, error){
		func() (*models.ReviewAlert, error) { return d.CheckRatingDrop(ctx, workspaceID, nil) },
		func() (*models.ReviewAlert, error) { return d.CheckReviewSpike(ctx, workspaceID) },
		func() (*models.ReviewAlert, error) { return d.CheckSentimentShift(ctx, workspaceID) },
	}

	var raised []models.ReviewAlert
	for _, check := range checks {
		alert, err := check()
		if err != nil {
			logrus.Errorf("Alert check failed for workspace %s: %v", workspaceID, err)
			continue
		}
		if alert != nil {
			raised = append(raised, *alert)
		}
	}
	return raised, nil
}

// Acknowledge marks an alert acknowledged. Re-acknowledging simply overwrites
// the timestamp and acknowledger.
func (d *Detector) Acknowledge(ctx context.Context, alertID, userID string) (*models.ReviewAlert, error) {
	now := time.Now().UTC()
	status := models.AlertStatusAcknowledged
	return d.alerts.Update(ctx, alertID, models.AlertUpdate{
		Status:         &status,
		AcknowledgedAt: &now,
		AcknowledgedBy: &userID,
	})
}

// Resolve marks an alert resolved. ACTIVE alerts may be resolved directly.
func (d *Detector) Resolve(ctx context.Context, alertID string) (*models.ReviewAlert, error) {
	now := time.Now().UTC()
	status := models.AlertStatusResolved
	return d.alerts.Update(ctx, alertID, models.AlertUpdate{
		Status: &status,
		ResolvedAt: &now,
	})
}

// List returns workspace alerts, optionally filtered by status.
func (d *Detector) List(ctx context.Context, workspaceID string, status *models.AlertStatus) ([]models.ReviewAlert, error) {
	return d.alerts.FindMany(ctx, workspaceID, status)
}

// raise creates the alert unless an ACTIVE one of the same type exists within
// the dedup window. The store call is the authoritative guard; the FindActive
// pre-check is only a fast path.
func (d *Detector) raise(ctx context.Context, alert *models.ReviewAlert) (*models.ReviewAlert, error) {
	since := time.Now().UTC().Add(-dedupWindow)

	if existing, err := d.alerts.FindActive(ctx, alert.WorkspaceID, alert.Type, since); err == nil && existing != nil {
		return existing, nil
	}

	stored, created, err := d.alerts.CreateDedup(ctx, alert, since)
	if err != nil {
		return nil, err
	}
	if !created {
		return stored, nil
	}

	logrus.Infof("Raised %s alert (%s) for workspace %s", stored.Type, stored.Severity, stored.WorkspaceID)
	if d.notifier != nil {
		if err := d.notifier.SendAlert(stored); err != nil {
			logrus.Errorf("Failed to deliver alert notification: %v", err)
		}
	}
	return stored, nil
}

func (d *Detector) loadWindow(ctx context.Context, workspaceID string, platform *string, from, to time.Time) ([]models.Review, error) {
	return d.reviews.FindMany(ctx, models.ReviewFilter{
		WorkspaceID:     workspaceID,
		Platform:        platform,
		PublishedAfter:  &from,
		PublishedBefore: &to,
	})
}

func meanRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, review := range reviews {
		sum += float64(review.Rating)
	}
	return sum / float64(len(reviews))
}

func negativeShare(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var negative int
	for _, review := range reviews {
		if review.Sentiment == models.SentimentNegative {
			negative++
		}
	}
	return float64(negative) / float64(len(reviews)) * 100
}
