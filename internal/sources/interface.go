package sources

import (
	"context"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Source fetches recent reviews from one external review platform.
type Source interface {
	GetName() string
	IsEnabled() bool
	FetchReviews(ctx context.Context, since time.Time) ([]models.Review, error)
}
