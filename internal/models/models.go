package models

import "time"

// Sentiment is the coarse label attached to a review after analysis.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ReviewStatus tracks where a review sits in the response workflow.
type ReviewStatus string

const (
	ReviewStatusNew       ReviewStatus = "NEW"
	ReviewStatusPending   ReviewStatus = "PENDING"
	ReviewStatusResponded ReviewStatus = "RESPONDED"
	ReviewStatusEscalated ReviewStatus = "ESCALATED"
	ReviewStatusResolved  ReviewStatus = "RESOLVED"
	ReviewStatusArchived  ReviewStatus = "ARCHIVED"
)

// Well-known review platforms. The field is an open string so a new
// integration doesn't require a model change.
const (
	PlatformGoogle      = "google"
	PlatformYelp        = "yelp"
	PlatformFacebook    = "facebook"
	PlatformTripAdvisor = "tripadvisor"
	PlatformTrustpilot  = "trustpilot"
)

// AlertType identifies the anomaly pattern that raised an alert.
type AlertType string

const (
	AlertNegativeReview    AlertType = "NEGATIVE_REVIEW"
	AlertRatingDrop        AlertType = "RATING_DROP"
	AlertReviewSpike       AlertType = "REVIEW_SPIKE"
	AlertSentimentShift    AlertType = "SENTIMENT_SHIFT"
	AlertCompetitorMention AlertType = "COMPETITOR_MENTION"
	AlertUrgentIssue       AlertType = "URGENT_ISSUE"
)

// AlertSeverity ranks alerts for display and notification routing.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertStatus is the alert lifecycle: ACTIVE -> ACKNOWLEDGED -> RESOLVED.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

// Review is a single customer review ingested from an external platform.
// The (Platform, PlatformReviewID) pair is unique across the corpus.
type Review struct {
	ID               string       `json:"id"`
	WorkspaceID      string       `json:"workspace_id"`
	Platform         string       `json:"platform"`
	PlatformReviewID string       `json:"platform_review_id"`
	LocationID       string       `json:"location_id,omitempty"`
	LocationName     string       `json:"location_name,omitempty"`
	ReviewerName     string       `json:"reviewer_name"`
	ReviewerAvatar   string       `json:"reviewer_avatar,omitempty"`
	ReviewerProfile  string       `json:"reviewer_profile,omitempty"`
	Rating           int          `json:"rating"`
	Title            string       `json:"title,omitempty"`
	Content          string       `json:"content"`
	Verified         bool         `json:"verified"`
	Tags             []string     `json:"tags,omitempty"`
	PublishedAt      time.Time    `json:"published_at"`
	Sentiment        Sentiment    `json:"sentiment,omitempty"`
	SentimentScore   float64      `json:"sentiment_score"`
	Topics           []string     `json:"topics,omitempty"`
	Keywords         []string     `json:"keywords,omitempty"`
	Status           ReviewStatus `json:"status"`
	HasResponse      bool         `json:"has_response"`
	ResponseDate     *time.Time   `json:"response_date,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ScoreKey is the composite key of a daily reputation snapshot. A nil
// Platform or LocationID means the snapshot aggregates all of them.
type ScoreKey struct {
	WorkspaceID string
	Date        time.Time
	Platform    *string
	LocationID  *string
}

// ReputationScore is an upsert-by-key daily snapshot of workspace reputation.
type ReputationScore struct {
	ID                 string    `json:"id"`
	WorkspaceID        string    `json:"workspace_id"`
	Date               time.Time `json:"date"`
	Platform           *string   `json:"platform,omitempty"`
	LocationID         *string   `json:"location_id,omitempty"`
	OverallScore       int       `json:"overall_score"`
	AverageRating      float64   `json:"average_rating"`
	TotalReviews       int       `json:"total_reviews"`
	PositiveCount      int       `json:"positive_count"`
	NeutralCount       int       `json:"neutral_count"`
	NegativeCount      int       `json:"negative_count"`
	PositivePercentage float64   `json:"positive_percentage"`
	ResponseRate       float64   `json:"response_rate"`
	AvgResponseTime    float64   `json:"avg_response_time"`
	RatingTrend        float64   `json:"rating_trend"`
	VolumeTrend        float64   `json:"volume_trend"`
	SentimentTrend     float64   `json:"sentiment_trend"`
	TopPositiveTopics  []string  `json:"top_positive_topics,omitempty"`
	TopNegativeTopics  []string  `json:"top_negative_topics,omitempty"`
	CommonKeywords     []string  `json:"common_keywords,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Key returns the snapshot's composite key with the date truncated to its day.
func (s *ReputationScore) Key() ScoreKey {
	return ScoreKey{
		WorkspaceID: s.WorkspaceID,
		Date:        DayStart(s.Date),
		Platform:    s.Platform,
		LocationID:  s.LocationID,
	}
}

// ReviewAlert is a system-raised notice of an anomalous review pattern.
type ReviewAlert struct {
	ID              string            `json:"id"`
	WorkspaceID     string            `json:"workspace_id"`
	ReviewID        string            `json:"review_id,omitempty"`
	Type            AlertType         `json:"type"`
	Severity        AlertSeverity     `json:"severity"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	AffectedReviews int               `json:"affected_reviews,omitempty"`
	RatingDrop      float64           `json:"rating_drop,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Status          AlertStatus       `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	AcknowledgedAt  *time.Time        `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string            `json:"acknowledged_by,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
}

// ReviewFilter selects reviews for queries and aggregations. Nil pointer
// fields are wildcards.
type ReviewFilter struct {
	WorkspaceID     string
	Platform        *string
	LocationID      *string
	MinRating       *int
	MaxRating       *int
	Sentiment       *Sentiment
	Status          *ReviewStatus
	HasResponse     *bool
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
}

// ReviewUpdate is a partial update; nil fields are left untouched.
type ReviewUpdate struct {
	Sentiment      *Sentiment
	SentimentScore *float64
	Topics         []string
	Keywords       []string
	Status         *ReviewStatus
	HasResponse    *bool
	ResponseDate   *time.Time
	Tags           []string
}

// AlertUpdate is a partial update applied by the alert lifecycle operations.
type AlertUpdate struct {
	Status         *AlertStatus
	AcknowledgedAt *time.Time
	AcknowledgedBy *string
	ResolvedAt     *time.Time
}

// DayStart truncates t to midnight UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last instant of t's calendar day in UTC.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).Add(24*time.Hour - time.Nanosecond)
}

// WeekStart returns midnight UTC of the most recent Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	d := DayStart(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// StrPtr is a convenience for optional platform/location values.
func StrPtr(s string) *string { return &s }
