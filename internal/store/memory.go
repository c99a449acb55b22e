package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpulse/reviewpulse/internal/models"
)

// In-process store implementations used as the default backend and in tests.
// Each store guards its map with a mutex; the alert dedup check-then-create
// runs under the lock, which makes the dedup guard authoritative here.

// MemoryReviews implements ReviewStore over a mutexed map.
type MemoryReviews struct {
	mu      sync.RWMutex
	reviews map[string]models.Review
}

var _ ReviewStore = (*MemoryReviews)(nil)

// NewMemoryReviews creates an empty in-memory review store.
func NewMemoryReviews() *MemoryReviews {
	return &MemoryReviews{reviews: make(map[string]models.Review)}
}

// Create stores a new review, rejecting duplicate (platform, platformReviewID).
func (m *MemoryReviews) Create(_ context.Context, review *models.Review) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.reviews {
		if existing.Platform == review.Platform && existing.PlatformReviewID == review.PlatformReviewID {
			return nil, fmt.Errorf("review %s/%s: %w", review.Platform, review.PlatformReviewID, ErrConflict)
		}
	}

	stored := *review
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = models.ReviewStatusNew
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.reviews[stored.ID] = stored

	out := stored
	return &out, nil
}

func (m *MemoryReviews) FindOne(_ context.Context, id string) (*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	review, ok := m.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	out := review
	return &out, nil
}

// FindMany returns matching reviews ordered by publish date, newest first.
func (m *MemoryReviews) FindMany(_ context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.Review
	for _, review := range m.reviews {
		if matchesFilter(review, filter) {
			matched = append(matched, review)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})
	return matched, nil
}

func matchesFilter(r models.Review, f models.ReviewFilter) bool {
	if f.WorkspaceID != "" && r.WorkspaceID != f.WorkspaceID {
		return false
	}
	if f.Platform != nil && r.Platform != *f.Platform {
		return false
	}
	if f.LocationID != nil && r.LocationID != *f.LocationID {
		return false
	}
	if f.MinRating != nil && r.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && r.Rating > *f.MaxRating {
		return false
	}
	if f.Sentiment != nil && r.Sentiment != *f.Sentiment {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.HasResponse != nil && r.HasResponse != *f.HasResponse {
		return false
	}
	if f.PublishedAfter != nil && r.PublishedAt.Before(*f.PublishedAfter) {
		return false
	}
	if f.PublishedBefore != nil && r.PublishedAt.After(*f.PublishedBefore) {
		return false
	}
	return true
}

func (m *MemoryReviews) Update(_ context.Context, id string, fields models.ReviewUpdate) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	review, ok := m.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}

	if fields.Sentiment != nil {
		review.Sentiment = *fields.Sentiment
	}
	if fields.SentimentScore != nil {
		review.SentimentScore = *fields.SentimentScore
	}
	if fields.Topics != nil {
		review.Topics = fields.Topics
	}
	if fields.Keywords != nil {
		review.Keywords = fields.Keywords
	}
	if fields.Status != nil {
		review.Status = *fields.Status
	}
	if fields.HasResponse != nil {
		review.HasResponse = *fields.HasResponse
	}
	if fields.ResponseDate != nil {
		review.ResponseDate = fields.ResponseDate
	}
	if fields.Tags != nil {
		review.Tags = fields.Tags
	}
	review.UpdatedAt = time.Now().UTC()
	m.reviews[id] = review

	out := review
	return &out, nil
}

func (m *MemoryReviews) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reviews[id]; !ok {
		return fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	delete(m.reviews, id)
	return nil
}

// MemoryScores implements ScoreStore over a mutexed map keyed by the
// composite snapshot key.
type MemoryScores struct {
	mu     sync.RWMutex
	scores map[string]models.ReputationScore
}

var _ ScoreStore = (*MemoryScores)(nil)

// NewMemoryScores creates an empty in-memory snapshot store.
func NewMemoryScores() *MemoryScores {
	return &MemoryScores{scores: make(map[string]models.ReputationScore)}
}

func scoreMapKey(k models.ScoreKey) string {
	platform, location := "", ""
	if k.Platform != nil {
		platform = *k.Platform
	}
	if k.LocationID != nil {
		location = *k.LocationID
	}
	return fmt.Sprintf("%s|%s|%s|%s", k.WorkspaceID, models.DayStart(k.Date).Format("2006-01-02"), platform, location)
}

// Upsert replaces any snapshot with the same composite key.
func (m *MemoryScores) Upsert(_ context.Context, score *models.ReputationScore) (*models.ReputationScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *score
	stored.Date = models.DayStart(stored.Date)
	key := scoreMapKey(stored.Key())
	now := time.Now().UTC()
	if existing, ok := m.scores[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	m.scores[key] = stored

	out := stored
	return &out, nil
}

// FindOne returns the snapshot for the exact key, or nil when absent.
func (m *MemoryScores) FindOne(_ context.Context, key models.ScoreKey) (*models.ReputationScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.scores[scoreMapKey(key)]
	if !ok {
		return nil, nil
	}
	out := score
	return &out, nil
}

// FindRange returns snapshots for the key's workspace/platform/location with
// dates in [from, to], ordered by date ascending.
func (m *MemoryScores) FindRange(_ context.Context, key models.ScoreKey, from, to time.Time) ([]models.ReputationScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from = models.DayStart(from)
	to = models.DayStart(to)

	var matched []models.ReputationScore
	for _, score := range m.scores {
		if score.WorkspaceID != key.WorkspaceID {
			continue
		}
		if !optEqual(score.Platform, key.Platform) || !optEqual(score.LocationID, key.LocationID) {
			continue
		}
		if score.Date.Before(from) || score.Date.After(to) {
			continue
		}
		matched = append(matched, score)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	return matched, nil
}

func optEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MemoryAlerts implements AlertStore over a mutexed map.
type MemoryAlerts struct {
	mu     sync.RWMutex
	alerts map[string]models.ReviewAlert
}

var _ AlertStore = (*MemoryAlerts)(nil)

// NewMemoryAlerts creates an empty in-memory alert store.
func NewMemoryAlerts() *MemoryAlerts {
	return &MemoryAlerts{alerts: make(map[string]models.ReviewAlert)}
}

// CreateDedup inserts the alert unless an ACTIVE alert of the same
// (workspace, type) was created at or after since. Lookup and insert run
// under one lock, so concurrent triggers cannot produce duplicates.
func (m *MemoryAlerts) CreateDedup(_ context.Context, alert *models.ReviewAlert, since time.Time) (*models.ReviewAlert, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.findActiveLocked(alert.WorkspaceID, alert.Type, since); existing != nil {
		return existing, false, nil
	}

	stored := *alert
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = models.AlertStatusActive
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.alerts[stored.ID] = stored

	out := stored
	return &out, true, nil
}

func (m *MemoryAlerts) findActiveLocked(workspaceID string, alertType models.AlertType, since time.Time) *models.ReviewAlert {
	var newest *models.ReviewAlert
	for id := range m.alerts {
		alert := m.alerts[id]
		if alert.WorkspaceID != workspaceID || alert.Type != alertType {
			continue
		}
		if alert.Status != models.AlertStatusActive || alert.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || alert.CreatedAt.After(newest.CreatedAt) {
			copied := alert
			newest = &copied
		}
	}
	return newest
}

func (m *MemoryAlerts) FindOne(_ context.Context, id string) (*models.ReviewAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	out := alert
	return &out, nil
}

func (m *MemoryAlerts) FindActive(_ context.Context, workspaceID string, alertType models.AlertType, since time.Time) (*models.ReviewAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.findActiveLocked(workspaceID, alertType, since), nil
}

var severityRank = map[models.AlertSeverity]int{
	models.SeverityLow:      0,
	models.SeverityMedium:   1,
	models.SeverityHigh:     2,
	models.SeverityCritical: 3,
}

// FindMany returns workspace alerts ordered by severity descending, then
// creation time descending.
func (m *MemoryAlerts) FindMany(_ context.Context, workspaceID string, status *models.AlertStatus) ([]models.ReviewAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.ReviewAlert
	for _, alert := range m.alerts {
		if alert.WorkspaceID != workspaceID {
			continue
		}
		if status != nil && alert.Status != *status {
			continue
		}
		matched = append(matched, alert)
	}
	sort.Slice(matched, func(i, j int) bool {
		if severityRank[matched[i].Severity] != severityRank[matched[j].Severity] {
			return severityRank[matched[i].Severity] > severityRank[matched[j].Severity]
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (m *MemoryAlerts) Update(_ context.Context, id string, fields models.AlertUpdate) (*models.ReviewAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}

	if fields.Status != nil {
		alert.Status = *fields.Status
	}
	if fields.AcknowledgedAt != nil {
		alert.AcknowledgedAt = fields.AcknowledgedAt
	}
	if fields.AcknowledgedBy != nil {
		alert.AcknowledgedBy = *fields.AcknowledgedBy
	}
	if fields.ResolvedAt != nil {
		alert.ResolvedAt = fields.ResolvedAt
	}
	m.alerts[id] = alert

	out := alert
	return &out, nil
}
