package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Postgres-backed stores. Row types keep the gorm mapping out of the domain
// models; nullable platform/location are stored as empty strings so the
// composite unique indexes stay simple.

type reviewRow struct {
	ID               string `gorm:"primaryKey"`
	WorkspaceID      string `gorm:"index;not null"`
	Platform         string `gorm:"uniqueIndex:idx_platform_review;not null"`
	PlatformReviewID string `gorm:"uniqueIndex:idx_platform_review;not null"`
	LocationID       string
	LocationName     string
	ReviewerName     string
	ReviewerAvatar   string
	ReviewerProfile  string
	Rating           int    `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Title            string
	Content          string `gorm:"type:text"`
	Verified         bool
	Tags             []string `gorm:"serializer:json"`
	PublishedAt      time.Time `gorm:"index"`
	Sentiment        string
	SentimentScore   float64
	Topics           []string `gorm:"serializer:json"`
	Keywords         []string `gorm:"serializer:json"`
	Status           string
	HasResponse      bool
	ResponseDate     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (reviewRow) TableName() string { return "reviews" }

type scoreRow struct {
	ID                 string    `gorm:"primaryKey"`
	WorkspaceID        string    `gorm:"uniqueIndex:idx_score_key;not null"`
	Date               time.Time `gorm:"uniqueIndex:idx_score_key;not null"`
	Platform           string    `gorm:"uniqueIndex:idx_score_key"`
	LocationID         string    `gorm:"uniqueIndex:idx_score_key"`
	OverallScore       int
	AverageRating      float64
	TotalReviews       int
	PositiveCount      int
	NeutralCount       int
	NegativeCount      int
	PositivePercentage float64
	ResponseRate       float64
	AvgResponseTime    float64
	RatingTrend        float64
	VolumeTrend        float64
	SentimentTrend     float64
	TopPositiveTopics  []string `gorm:"serializer:json"`
	TopNegativeTopics  []string `gorm:"serializer:json"`
	CommonKeywords     []string `gorm:"serializer:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (scoreRow) TableName() string { return "reputation_scores" }

type alertRow struct {
	ID              string `gorm:"primaryKey"`
	WorkspaceID     string `gorm:"index;not null"`
	ReviewID        string
	Type            string `gorm:"index;not null"`
	Severity        string
	Title           string
	Description     string `gorm:"type:text"`
	AffectedReviews int
	RatingDrop      float64
	Metadata        map[string]string `gorm:"serializer:json"`
	Status          string            `gorm:"index"`
	CreatedAt       time.Time         `gorm:"index"`
	AcknowledgedAt  *time.Time
	AcknowledgedBy  string
	ResolvedAt      *time.Time
}

func (alertRow) TableName() string { return "review_alerts" }

// OpenPostgres connects to Postgres, runs migrations and returns the shared
// gorm handle.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(&reviewRow{}, &scoreRow{}, &alertRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Connected to PostgreSQL")
	return db, nil
}

// GormReviews implements ReviewStore on Postgres.
type GormReviews struct {
	db *gorm.DB
}

var _ ReviewStore = (*GormReviews)(nil)

func NewGormReviews(db *gorm.DB) *GormReviews { return &GormReviews{db: db} }

func (g *GormReviews) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	row := toReviewRow(review)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Status == "" {
		row.Status = string(models.ReviewStatusNew)
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("review %s/%s: %w", review.Platform, review.PlatformReviewID, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return fromReviewRow(row), nil
}

func (g *GormReviews) FindOne(ctx context.Context, id string) (*models.Review, error) {
	var row reviewRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	return fromReviewRow(row), nil
}

func (g *GormReviews) FindMany(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	q := g.db.WithContext(ctx).Model(&reviewRow{})
	if filter.WorkspaceID != "" {
		q = q.Where("workspace_id = ?", filter.WorkspaceID)
	}
	if filter.Platform != nil {
		q = q.Where("platform = ?", *filter.Platform)
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.MinRating != nil {
		q = q.Where("rating >= ?", *filter.MinRating)
	}
	if filter.MaxRating != nil {
		q = q.Where("rating <= ?", *filter.MaxRating)
	}
	if filter.Sentiment != nil {
		q = q.Where("sentiment = ?", string(*filter.Sentiment))
	}
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.HasResponse != nil {
		q = q.Where("has_response = ?", *filter.HasResponse)
	}
	if filter.PublishedAfter != nil {
		q = q.Where("published_at >= ?", *filter.PublishedAfter)
	}
	if filter.PublishedBefore != nil {
		q = q.Where("published_at <= ?", *filter.PublishedBefore)
	}

	var rows []reviewRow
	if err := q.Order("published_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	reviews := make([]models.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, *fromReviewRow(row))
	}
	return reviews, nil
}

func (g *GormReviews) Update(ctx context.Context, id string, fields models.ReviewUpdate) (*models.Review, error) {
	updates := map[string]interface{}{}
	if fields.Sentiment != nil {
		updates["sentiment"] = string(*fields.Sentiment)
	}
	if fields.SentimentScore != nil {
		updates["sentiment_score"] = *fields.SentimentScore
	}
	if fields.Topics != nil {
		updates["topics"] = fields.Topics
	}
	if fields.Keywords != nil {
		updates["keywords"] = fields.Keywords
	}
	if fields.Status != nil {
		updates["status"] = string(*fields.Status)
	}
	if fields.HasResponse != nil {
		updates["has_response"] = *fields.HasResponse
	}
	if fields.ResponseDate != nil {
		updates["response_date"] = fields.ResponseDate
	}
	if fields.Tags != nil {
		updates["tags"] = fields.Tags
	}

	if len(updates) > 0 {
		res := g.db.WithContext(ctx).Model(&reviewRow{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update review: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
	}
	return g.FindOne(ctx, id)
}

func (g *GormReviews) Delete(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Delete(&reviewRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	return nil
}

// GormScores implements ScoreStore on Postgres.
type GormScores struct {
	db *gorm.DB
}

var _ ScoreStore = (*GormScores)(nil)

func NewGormScores(db *gorm.DB) *GormScores { return &GormScores{db: db} }

func (g *GormScores) Upsert(ctx context.Context, score *models.ReputationScore) (*models.ReputationScore, error) {
	row := toScoreRow(score)
	row.Date = models.DayStart(row.Date)

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing scoreRow
		err := tx.Where(
			"workspace_id = ? AND date = ? AND platform = ? AND location_id = ?",
			row.WorkspaceID, row.Date, row.Platform, row.LocationID,
		).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.ID = uuid.NewString()
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reputation score: %w", err)
	}
	return fromScoreRow(row), nil
}

func (g *GormScores) FindOne(ctx context.Context, key models.ScoreKey) (*models.ReputationScore, error) {
	var row scoreRow
	err := g.db.WithContext(ctx).Where(
		"workspace_id = ? AND date = ? AND platform = ? AND location_id = ?",
		key.WorkspaceID, models.DayStart(key.Date), optString(key.Platform), optString(key.LocationID),
	).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reputation score: %w", err)
	}
	return fromScoreRow(row), nil
}

func (g *GormScores) FindRange(ctx context.Context, key models.ScoreKey, from, to time.Time) ([]models.ReputationScore, error) {
	var rows []scoreRow
	err := g.db.WithContext(ctx).Where(
		"workspace_id = ? AND platform = ? AND location_id = ? AND date >= ? AND date <= ?",
		key.WorkspaceID, optString(key.Platform), optString(key.LocationID),
		models.DayStart(from), models.DayStart(to),
	).Order("date ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reputation scores: %w", err)
	}
	scores := make([]models.ReputationScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, *fromScoreRow(row))
	}
	return scores, nil
}

// GormAlerts implements AlertStore on Postgres.
type GormAlerts struct {
	db *gorm.DB
}

var _ AlertStore = (*GormAlerts)(nil)

func NewGormAlerts(db *gorm.DB) *GormAlerts { return &GormAlerts{db: db} }

// CreateDedup runs the dedup lookup and insert inside one transaction so
// concurrent triggers cannot raise duplicate alerts.
func (g *GormAlerts) CreateDedup(ctx context.Context, alert *models.ReviewAlert, since time.Time) (*models.ReviewAlert, bool, error) {
	row := toAlertRow(alert)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Status == "" {
		row.Status = string(models.AlertStatusActive)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var existing *alertRow
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found alertRow
		err := tx.Where(
			"workspace_id = ? AND type = ? AND status = ? AND created_at >= ?",
			row.WorkspaceID, row.Type, string(models.AlertStatusActive), since,
		).Order("created_at DESC").First(&found).Error
		switch {
		case err == nil:
			existing = &found
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create alert: %w", err)
	}
	if existing != nil {
		return fromAlertRow(*existing), false, nil
	}
	return fromAlertRow(row), true, nil
}

func (g *GormAlerts) FindOne(ctx context.Context, id string) (*models.ReviewAlert, error) {
	var row alertRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	return fromAlertRow(row), nil
}

func (g *GormAlerts) FindActive(ctx context.Context, workspaceID string, alertType models.AlertType, since time.Time) (*models.ReviewAlert, error) {
	var row alertRow
	err := g.db.WithContext(ctx).Where(
		"workspace_id = ? AND type = ? AND status = ? AND created_at >= ?",
		workspaceID, string(alertType), string(models.AlertStatusActive), since,
	).Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up active alert: %w", err)
	}
	return fromAlertRow(row), nil
}

func (g *GormAlerts) FindMany(ctx context.Context, workspaceID string, status *models.AlertStatus) ([]models.ReviewAlert, error) {
	q := g.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}

	var rows []alertRow
	err := q.Order(
		"CASE severity WHEN 'CRITICAL' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0 END DESC, created_at DESC",
	).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	alerts := make([]models.ReviewAlert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, *fromAlertRow(row))
	}
	return alerts, nil
}

func (g *GormAlerts) Update(ctx context.Context, id string, fields models.AlertUpdate) (*models.ReviewAlert, error) {
	updates := map[string]interface{}{}
	if fields.Status != nil {
		updates["status"] = string(*fields.Status)
	}
	if fields.AcknowledgedAt != nil {
		updates["acknowledged_at"] = fields.AcknowledgedAt
	}
	if fields.AcknowledgedBy != nil {
		updates["acknowledged_by"] = *fields.AcknowledgedBy
	}
	if fields.ResolvedAt != nil {
		updates["resolved_at"] = fields.ResolvedAt
	}

	if len(updates) > 0 {
		res := g.db.WithContext(ctx).Model(&alertRow{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update alert: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
	}
	return g.FindOne(ctx, id)
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optFromString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toReviewRow(r *models.Review) reviewRow {
	return reviewRow{
		ID:               r.ID,
		WorkspaceID:      r.WorkspaceID,
		Platform:         r.Platform,
		PlatformReviewID: r.PlatformReviewID,
		LocationID:       r.LocationID,
		LocationName:     r.LocationName,
		ReviewerName:     r.ReviewerName,
		ReviewerAvatar:   r.ReviewerAvatar,
		ReviewerProfile:  r.ReviewerProfile,
		Rating:           r.Rating,
		Title:            r.Title,
		Content:          r.Content,
		Verified:         r.Verified,
		Tags:             r.Tags,
		PublishedAt:      r.PublishedAt,
		Sentiment:        string(r.Sentiment),
		SentimentScore:   r.SentimentScore,
		Topics:           r.Topics,
		Keywords:         r.Keywords,
		Status:           string(r.Status),
		HasResponse:      r.HasResponse,
		ResponseDate:     r.ResponseDate,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func fromReviewRow(row reviewRow) *models.Review {
	return &models.Review{
		ID:               row.ID,
		WorkspaceID:      row.WorkspaceID,
		Platform:         row.Platform,
		PlatformReviewID: row.PlatformReviewID,
		LocationID:       row.LocationID,
		LocationName:     row.LocationName,
		ReviewerName:     row.ReviewerName,
		ReviewerAvatar:   row.ReviewerAvatar,
		ReviewerProfile:  row.ReviewerProfile,
		Rating:           row.Rating,
		Title:            row.Title,
		Content:          row.Content,
		Verified:         row.Verified,
		Tags:             row.Tags,
		PublishedAt:      row.PublishedAt,
		Sentiment:        models.Sentiment(row.Sentiment),
		SentimentScore:   row.SentimentScore,
		Topics:           row.Topics,
		Keywords:         row.Keywords,
		Status:           models.ReviewStatus(row.Status),
		HasResponse:      row.HasResponse,
		ResponseDate:     row.ResponseDate,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toScoreRow(s *models.ReputationScore) scoreRow {
	return scoreRow{
		ID:                 s.ID,
		WorkspaceID:        s.WorkspaceID,
		Date:               s.Date,
		Platform:           optString(s.Platform),
		LocationID:         optString(s.LocationID),
		OverallScore:       s.OverallScore,
		AverageRating:      s.AverageRating,
		TotalReviews:       s.TotalReviews,
		PositiveCount:      s.PositiveCount,
		NeutralCount:       s.NeutralCount,
		NegativeCount:      s.NegativeCount,
		PositivePercentage: s.PositivePercentage,
		ResponseRate:       s.ResponseRate,
		AvgResponseTime:    s.AvgResponseTime,
		RatingTrend:        s.RatingTrend,
		VolumeTrend:        s.VolumeTrend,
		SentimentTrend:     s.SentimentTrend,
		TopPositiveTopics:  s.TopPositiveTopics,
		TopNegativeTopics:  s.TopNegativeTopics,
		CommonKeywords:     s.CommonKeywords,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromScoreRow(row scoreRow) *models.ReputationScore {
	return &models.ReputationScore{
		ID:                 row.ID,
		WorkspaceID:        row.WorkspaceID,
		Date:               row.Date,
		Platform:           optFromString(row.Platform),
		LocationID:         optFromString(row.LocationID),
		OverallScore:       row.OverallScore,
		AverageRating:      row.AverageRating,
		TotalReviews:       row.TotalReviews,
		PositiveCount:      row.PositiveCount,
		NeutralCount:       row.NeutralCount,
		NegativeCount:      row.NegativeCount,
		PositivePercentage: row.PositivePercentage,
		ResponseRate:       row.ResponseRate,
		AvgResponseTime:    row.AvgResponseTime,
		RatingTrend:        row.RatingTrend,
		VolumeTrend:        row.VolumeTrend,
		SentimentTrend:     row.SentimentTrend,
		TopPositiveTopics:  row.TopPositiveTopics,
		TopNegativeTopics:  row.TopNegativeTopics,
		CommonKeywords:     row.CommonKeywords,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func toAlertRow(a *models.ReviewAlert) alertRow {
	return alertRow{
		ID:              a.ID,
		WorkspaceID:     a.WorkspaceID,
		ReviewID:        a.ReviewID,
		Type:            string(a.Type),
		Severity:        string(a.Severity),
		Title:           a.Title,
		Description:     a.Description,
		AffectedReviews: a.AffectedReviews,
		RatingDrop:      a.RatingDrop,
		Metadata:        a.Metadata,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		AcknowledgedAt:  a.AcknowledgedAt,
		AcknowledgedBy:  a.AcknowledgedBy,
		ResolvedAt:      a.ResolvedAt,
	}
}

func fromAlertRow(row alertRow) *models.ReviewAlert {
	return &models.ReviewAlert{
		ID:              row.ID,
		WorkspaceID:     row.WorkspaceID,
		ReviewID:        row.ReviewID,
		Type:            models.AlertType(row.Type),
		Severity:        models.AlertSeverity(row.Severity),
		Title:           row.Title,
		Description:     row.Description,
		AffectedReviews: row.AffectedReviews,
		RatingDrop:      row.RatingDrop,
		Metadata:        row.Metadata,
		Status:          models.AlertStatus(row.Status),
		CreatedAt:       row.CreatedAt,
		AcknowledgedAt:  row.AcknowledgedAt,
		AcknowledgedBy:  row.AcknowledgedBy,
		ResolvedAt:      row.ResolvedAt,
	}
}
