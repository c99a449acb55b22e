package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/archive"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/notifications"
	"github.com/reviewpulse/reviewpulse/internal/reputation"
	"github.com/reviewpulse/reviewpulse/internal/reviews"
	"github.com/reviewpulse/reviewpulse/internal/sources"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Service schedules the daily snapshot run, the alert sweep and optional
// platform ingestion. The underlying operations are idempotent, so a missed
// or repeated run is harmless.
type Service struct {
	config    *config.Config
	scorer    *reputation.Scorer
	detector  *alerts.Detector
	reviewSvc *reviews.Service
	notifier  notifications.Notifier
	archiver  archive.Archiver
	sources   []sources.Source
	cron      *cron.Cron
}

// NewService creates a scheduler service.
func NewService(cfg *config.Config, scorer *reputation.Scorer, detector *alerts.Detector, reviewSvc *reviews.Service, notifier notifications.Notifier, archiver archive.Archiver, srcs []sources.Source) *Service {
	return &Service{
		config:    cfg,
		scorer:    scorer,
		detector:  detector,
		reviewSvc: reviewSvc,
		notifier:  notifier,
		archiver:  archiver,
		sources:   srcs,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start registers the cron entries and begins scheduling.
func (s *Service) Start() error {
	snapshotExpr := fmt.Sprintf("0 0 %d * * *", s.config.SnapshotHourUTC)
	_, err := s.cron.AddFunc(snapshotExpr, func() {
		logrus.Info("Starting scheduled snapshot run")
		if err := s.RunDailySnapshots(context.Background()); err != nil {
			logrus.Errorf("Scheduled snapshot run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	sweepExpr := fmt.Sprintf("0 0 */%d * * *", s.config.AlertSweepHours)
	_, err = s.cron.AddFunc(sweepExpr, func() {
		logrus.Info("Starting scheduled alert sweep")
		if err := s.RunAlertSweep(context.Background()); err != nil {
			logrus.Errorf("Scheduled alert sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	if s.config.IngestionEnabled {
		ingestExpr := fmt.Sprintf("0 30 */%d * * *", s.config.IngestionHours)
		_, err = s.cron.AddFunc(ingestExpr, func() {
			logrus.Info("Starting scheduled review ingestion")
			if err := s.RunIngestion(context.Background()); err != nil {
				logrus.Errorf("Scheduled ingestion failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: snapshots at %02d:00 UTC, alert sweep every %dh", s.config.SnapshotHourUTC, s.config.AlertSweepHours)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

// RunDailySnapshots computes today's snapshot for every configured workspace,
// archives the export and sends the digest.
func (s *Service) RunDailySnapshots(ctx context.Context) error {
	start := time.Now()

	for _, workspaceID := range s.config.Workspaces {
		score, err := s.scorer.Calculate(ctx, workspaceID, time.Now().UTC(), nil, nil)
		if err != nil {
			logrus.Errorf("Snapshot failed for workspace %s: %v", workspaceID, err)
			continue
		}
		if score == nil {
			logrus.Infof("Workspace %s has no reviews yet, no snapshot written", workspaceID)
			continue
		}

		s.archiveSnapshot(score)
		s.sendDigest(ctx, workspaceID, score)
	}

	logrus.Infof("Snapshot run completed in %v", time.Since(start))
	return nil
}

func (s *Service) archiveSnapshot(score *models.ReputationScore) {
	data, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to marshal snapshot: %v", err)
		return
	}
	name := fmt.Sprintf("snapshots/%s/%s.json", score.WorkspaceID, score.Date.Format("2006-01-02"))
	if err := s.archiver.Store(name, data); err != nil {
		logrus.Errorf("Failed to archive snapshot %s: %v", name, err)
	}
}

func (s *Service) sendDigest(ctx context.Context, workspaceID string, score *models.ReputationScore) {
	active := models.AlertStatusActive
	open, err := s.detector.List(ctx, workspaceID, &active)
	if err != nil {
		logrus.Errorf("Failed to load open alerts for digest: %v", err)
	}

	digest := &notifications.Digest{
		WorkspaceID: workspaceID,
		GeneratedAt: time.Now().UTC(),
		Score:       score,
		Alerts:      open,
	}
	if err := s.notifier.SendDigest(digest); err != nil {
		logrus.Errorf("Failed to send digest for workspace %s: %v", workspaceID, err)
	}
}

// RunAlertSweep runs the population-level alert checks for every configured
// workspace.
func (s *Service) RunAlertSweep(ctx context.Context) error {
	start := time.Now()

	for _, workspaceID := range s.config.Workspaces {
		raised, err := s.detector.RunChecks(ctx, workspaceID)
		if err != nil {
			logrus.Errorf("Alert sweep failed for workspace %s: %v", workspaceID, err)
			continue
		}
		if len(raised) > 0 {
			logrus.Infof("Alert sweep raised %d alerts for workspace %s", len(raised), workspaceID)
		}
	}

	logrus.Infof("Alert sweep completed in %v", time.Since(start))
	return nil
}

// RunIngestion fetches recent reviews from every enabled platform connector
// concurrently and ingests them. Duplicates are skipped via the store's
// conflict check, so overlapping fetch windows are safe.
func (s *Service) RunIngestion(ctx context.Context) error {
	start := time.Now()
	since := time.Now().UTC().Add(-time.Duration(s.config.IngestionHours) * 2 * time.Hour)

	var wg sync.WaitGroup
	reviewsChan := make(chan []models.Review, len(s.sources))

	for _, source := range s.sources {
		if !source.IsEnabled() {
			continue
		}
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			logrus.Infof("Fetching reviews from %s since %s", src.GetName(), since.Format(time.RFC3339))
			fetched, err := src.FetchReviews(ctx, since)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				return
			}
			logrus.Infof("Fetched %d reviews from %s", len(fetched), src.GetName())
			reviewsChan <- fetched
		}(source)
	}

	go func() {
		wg.Wait()
		close(reviewsChan)
	}()

	var ingested, skipped int
	for batch := range reviewsChan {
		for i := range batch {
			if _, err := s.reviewSvc.Create(ctx, &batch[i]); err != nil {
				if errors.Is(err, store.ErrConflict) {
					skipped++
					continue
				}
				logrus.Errorf("Failed to ingest review %s/%s: %v", batch[i].Platform, batch[i].PlatformReviewID, err)
				continue
			}
			ingested++
		}
	}

	logrus.Infof("Ingestion completed in %v: %d new, %d already known", time.Since(start), ingested, skipped)
	return nil
}
