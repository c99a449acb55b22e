package notifications

import "github.com/reviewpulse/reviewpulse/internal/models"

// Notifier is the contract for delivering alerts and periodic digests.
type Notifier interface {
	SendAlert(alert *models.ReviewAlert) error
	SendDigest(digest *Digest) error
}
