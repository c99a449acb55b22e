package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/analytics"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/reputation"
	"github.com/reviewpulse/reviewpulse/internal/reviews"
	"github.com/reviewpulse/reviewpulse/internal/sentiment"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Runs the full pipeline against synthetic reviews and prints the resulting
// snapshot, dashboard and alerts to the terminal. No external services needed.
func main() {
	logrus.SetLevel(logrus.WarnLevel)

	reviewStore := store.NewMemoryReviews()
	scoreStore := store.NewMemoryScores()
	alertStore := store.NewMemoryAlerts()

	analyzer := sentiment.NewAnalyzer(reviewStore)
	detector := alerts.NewDetector(reviewStore, alertStore, nil)
	scorer := reputation.NewScorer(reviewStore, scoreStore)
	aggregator := analytics.NewAggregator(reviewStore)
	reviewService := reviews.NewService(reviewStore, analyzer, detector)

	ctx := context.Background()
	workspaceID := "demo-workspace"

	for i, seed := range sampleReviews() {
		seed.WorkspaceID = workspaceID
		seed.PlatformReviewID = fmt.Sprintf("demo-%d", i)
		if _, err := reviewService.Create(ctx, &seed); err != nil {
			logrus.Fatalf("Failed to ingest sample review: %v", err)
		}
	}

	printHeader("REPUTATION SNAPSHOT")
	score, err := scorer.Current(ctx, workspaceID)
	if err != nil {
		logrus.Fatalf("Failed to compute snapshot: %v", err)
	}
	fmt.Printf("Overall score:    %d/100\n", score.OverallScore)
	fmt.Printf("Average rating:   %.2f over %d reviews\n", score.AverageRating, score.TotalReviews)
	fmt.Printf("Sentiment split:  %d positive / %d neutral / %d negative\n", score.PositiveCount, score.NeutralCount, score.NegativeCount)
	fmt.Printf("Response rate:    %.1f%%\n", score.ResponseRate)
	if len(score.TopPositiveTopics) > 0 {
		fmt.Printf("Praised for:      %s\n", strings.Join(score.TopPositiveTopics, ", "))
	}
	if len(score.TopNegativeTopics) > 0 {
		fmt.Printf("Criticized for:   %s\n", strings.Join(score.TopNegativeTopics, ", "))
	}

	printHeader("ANALYTICS DASHBOARD")
	dashboard, err := aggregator.Dashboard(ctx, models.ReviewFilter{WorkspaceID: workspaceID})
	if err != nil {
		logrus.Fatalf("Failed to build dashboard: %v", err)
	}
	fmt.Println("Rating distribution:")
	for rating := 5; rating >= 1; rating-- {
		count := dashboard.RatingDistribution[rating]
		fmt.Printf("  %d stars  %s (%d)\n", rating, strings.Repeat("#", count), count)
	}
	fmt.Println("\nPlatforms:")
	for _, platform := range dashboard.Platforms {
		fmt.Printf("  %-12s %d reviews, %.2f avg\n", platform.Platform, platform.Count, platform.AverageRating)
	}
	fmt.Println("\nTop topics:")
	for _, topic := range dashboard.TopTopics {
		fmt.Printf("  %-16s %d mentions (%d positive / %d negative)\n", topic.Topic, topic.Total, topic.Positive, topic.Negative)
	}

	printHeader("ALERTS")
	raised, err := detector.RunChecks(ctx, workspaceID)
	if err != nil {
		logrus.Fatalf("Failed to run alert checks: %v", err)
	}
	active := models.AlertStatusActive
	open, err := detector.List(ctx, workspaceID, &active)
	if err != nil {
		logrus.Fatalf("Failed to list alerts: %v", err)
	}
	fmt.Printf("Checks raised %d new alerts, %d active in total:\n", len(raised), len(open))
	for _, alert := range open {
		fmt.Printf("  [%s] %s: %s\n", alert.Severity, alert.Title, alert.Description)
	}

	fmt.Println()
}

func printHeader(title string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 60))
}

func sampleReviews() []models.Review {
	now := time.Now().UTC()
	response := now.Add(-2 * time.Hour)

	return []models.Review{
		{Platform: models.PlatformGoogle, ReviewerName: "Dana K.", Rating: 5, Content: "Excellent service, the staff was friendly and the food amazing. Great value for the price.", PublishedAt: now.Add(-40 * 24 * time.Hour), HasResponse: true, ResponseDate: &response},
		{Platform: models.PlatformGoogle, ReviewerName: "Miguel R.", Rating: 5, Content: "Clean rooms and a wonderful atmosphere. The location is perfect, walking distance to everything.", PublishedAt: now.Add(-35 * 24 * time.Hour), HasResponse: true, ResponseDate: &response},
		{Platform: models.PlatformYelp, ReviewerName: "Priya S.", Rating: 4, Content: "Good quality overall. Delivery was fast and the packaging careful.", PublishedAt: now.Add(-20 * 24 * time.Hour)},
		{Platform: models.PlatformYelp, ReviewerName: "Tom W.", Rating: 3, Content: "Average experience. Decent product but the price felt expensive for what you get.", PublishedAt: now.Add(-10 * 24 * time.Hour)},
		{Platform: models.PlatformGoogle, ReviewerName: "Ana L.", Rating: 2, Content: "Slow service and the staff seemed overwhelmed. Long wait for a cold meal.", PublishedAt: now.Add(-3 * 24 * time.Hour)},
		{Platform: models.PlatformFacebook, ReviewerName: "Chris B.", Rating: 1, Content: "Terrible experience. Dirty room, broken shower, and rude manager. Avoid.", PublishedAt: now.Add(-1 * 24 * time.Hour)},
		{Platform: models.PlatformGoogle, ReviewerName: "Sam T.", Rating: 1, Content: "Awful. My order arrived damaged and support never responded to my refund request.", PublishedAt: now.Add(-6 * time.Hour)},
		{Platform: models.PlatformYelp, ReviewerName: "Lena M.", Rating: 2, Content: "Disappointed with the quality. Cheap materials that broke within a week.", PublishedAt: now.Add(-3 * time.Hour)},
	}
}
