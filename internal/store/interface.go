package store

import (
	"context"
	"errors"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound means the id did not resolve to an existing record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a unique constraint was violated, e.g. a duplicate
	// (platform, platformReviewID) pair on review creation.
	ErrConflict = errors.New("record already exists")
)

// ReviewStore is the persistence contract for reviews.
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	FindOne(ctx context.Context, id string) (*models.Review, error)
	FindMany(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error)
	Update(ctx context.Context, id string, fields models.ReviewUpdate) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}

// ScoreStore is the persistence contract for daily reputation snapshots.
// Upsert replaces any existing snapshot with the same composite key.
type ScoreStore interface {
	Upsert(ctx context.Context, score *models.ReputationScore) (*models.ReputationScore, error)
	FindOne(ctx context.Context, key models.ScoreKey) (*models.ReputationScore, error)
	// FindRange returns snapshots for the key's workspace/platform/location
	// with dates in [from, to], ordered by date ascending.
	FindRange(ctx context.Context, key models.ScoreKey, from, to time.Time) ([]models.ReputationScore, error)
}

// AlertStore is the persistence contract for review alerts. Dedup of
// concurrent creates is the store's responsibility: CreateDedup must run the
// lookup and insert as one atomic step.
type AlertStore interface {
	// CreateDedup inserts the alert unless an ACTIVE alert with the same
	// (workspace, type) was created at or after since; in that case the
	// existing alert is returned with created=false.
	CreateDedup(ctx context.Context, alert *models.ReviewAlert, since time.Time) (result *models.ReviewAlert, created bool, err error)
	FindOne(ctx context.Context, id string) (*models.ReviewAlert, error)
	// FindActive returns the newest ACTIVE alert of the given type created at
	// or after since, or nil when none exists.
	FindActive(ctx context.Context, workspaceID string, alertType models.AlertType, since time.Time) (*models.ReviewAlert, error)
	// FindMany returns workspace alerts, optionally filtered by status,
	// ordered by severity descending then creation time descending.
	FindMany(ctx context.Context, workspaceID string, status *models.AlertStatus) ([]models.ReviewAlert, error)
	Update(ctx context.Context, id string, fields models.AlertUpdate) (*models.ReviewAlert, error)
}
