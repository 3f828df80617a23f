// -----------------------------------------------------------------------
// Watch Service - persistent URL watches with scheduled change checks
// -----------------------------------------------------------------------

package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
	"github.com/webpeel/webpeel/internal/track"
)

const maxErrorMessageLen = 500

// changeNotification is the payload posted to a watch's webhook
type changeNotification struct {
	Event               string            `json:"event"` // "watch.changed"
	WatchID             string            `json:"watchId"`
	URL                 string            `json:"url"`
	PreviousFingerprint string            `json:"previousFingerprint"`
	Fingerprint         string            `json:"fingerprint"`
	ChangeCount         int               `json:"changeCount"`
	Diff                *models.WatchDiff `json:"diff,omitempty"`
	Timestamp           time.Time         `json:"timestamp"`
}

// Service runs periodic change checks against watched URLs. Each tick
// picks up the most overdue active watches, never-checked ones first.
type Service struct {
	storage interfaces.WatchStorage
	peel    interfaces.PeelService
	tracker interfaces.ChangeTracker
	config  *common.WatchConfig
	logger  arbor.ILogger
	cron    *cron.Cron
	client  *http.Client
}

// NewService creates the watch service
func NewService(storage interfaces.WatchStorage, peel interfaces.PeelService, tracker interfaces.ChangeTracker, config *common.WatchConfig, logger arbor.ILogger) *Service {
	timeout := config.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		storage: storage,
		peel:    peel,
		tracker: tracker,
		config:  config,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

// Create validates and persists a new watch
func (s *Service) Create(ctx context.Context, watch *models.Watch) error {
	normalized, err := common.NormalizeURL(watch.URL)
	if err != nil {
		return fmt.Errorf("invalid watch url: %w", err)
	}
	watch.URL = normalized

	if watch.ID == "" {
		watch.ID = common.NewWatchID()
	}
	floor := s.config.MinIntervalMinutes
	if floor <= 0 {
		floor = models.MinWatchIntervalMinutes
	}
	if watch.CheckIntervalMinutes < floor {
		watch.CheckIntervalMinutes = floor
	}
	watch.Status = models.WatchActive
	now := time.Now().UTC()
	watch.CreatedAt = now
	watch.UpdatedAt = now

	if err := s.storage.StoreWatch(ctx, watch); err != nil {
		return fmt.Errorf("failed to store watch: %w", err)
	}
	s.logger.Info().
		Str("watch_id", watch.ID).
		Str("url", watch.URL).
		Int("interval_min", watch.CheckIntervalMinutes).
		Msg("Watch created")
	return nil
}

// Get returns one watch by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Watch, error) {
	return s.storage.GetWatch(ctx, id)
}

// List returns all watches for an account
func (s *Service) List(ctx context.Context, accountID string) ([]*models.Watch, error) {
	return s.storage.GetWatchesByAccount(ctx, accountID)
}

// Delete removes a watch
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.storage.DeleteWatch(ctx, id)
}

// Check runs one watch cycle: fetch the page, compare fingerprints, diff
// against the previous snapshot, persist state and notify the webhook.
// Fetch failures flip the watch to error status but keep it scheduled.
func (s *Service) Check(ctx context.Context, id string) error {
	watch, err := s.storage.GetWatch(ctx, id)
	if err != nil {
		return fmt.Errorf("watch lookup failed: %w", err)
	}
	if watch == nil {
		return fmt.Errorf("watch %s not found", id)
	}

	var previousContent string
	if snap, serr := s.tracker.GetSnapshot(watch.URL); serr == nil && snap != nil {
		previousContent = snap.Content
	}

	opts := &models.RequestOptions{
		Format:         models.FormatMarkdown,
		Selector:       watch.Selector,
		ChangeTracking: true,
		Timeout:        30000,
	}
	result, err := s.peel.Peel(ctx, watch.URL, opts)
	if err != nil {
		return s.recordError(ctx, watch, err)
	}

	now := time.Now().UTC()
	changed := watch.LastFingerprint != "" && watch.LastFingerprint != result.Fingerprint

	if changed {
		diff := track.ParagraphDiff(previousContent, result.Content)
		previous := watch.LastFingerprint

		watch.LastChangedAt = &now
		watch.ChangeCount++
		watch.LastFingerprint = result.Fingerprint
		watch.LastCheckedAt = &now
		watch.Status = models.WatchActive
		watch.ErrorMessage = ""
		watch.UpdatedAt = now
		if err := s.storage.StoreWatch(ctx, watch); err != nil {
			return fmt.Errorf("failed to store watch: %w", err)
		}

		s.logger.Info().
			Str("watch_id", watch.ID).
			Str("url", watch.URL).
			Int("change_count", watch.ChangeCount).
			Msg("Watch detected change")
		s.notify(&changeNotification{
			Event:               "watch.changed",
			WatchID:             watch.ID,
			URL:                 watch.URL,
			PreviousFingerprint: previous,
			Fingerprint:         result.Fingerprint,
			ChangeCount:         watch.ChangeCount,
			Diff:                diff,
			Timestamp:           now,
		}, watch.WebhookURL)
		return nil
	}

	if watch.LastFingerprint == "" {
		watch.LastFingerprint = result.Fingerprint
	}
	watch.LastCheckedAt = &now
	watch.Status = models.WatchActive
	watch.ErrorMessage = ""
	watch.UpdatedAt = now
	if err := s.storage.StoreWatch(ctx, watch); err != nil {
		return fmt.Errorf("failed to store watch: %w", err)
	}
	return nil
}

// recordError flips the watch to error status, keeping it scheduled so a
// recovered site resumes change detection.
func (s *Service) recordError(ctx context.Context, watch *models.Watch, cause error) error {
	now := time.Now().UTC()
	msg := cause.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	watch.Status = models.WatchError
	watch.ErrorMessage = msg
	watch.LastCheckedAt = &now
	watch.UpdatedAt = now
	if serr := s.storage.StoreWatch(ctx, watch); serr != nil {
		s.logger.Warn().Err(serr).Str("watch_id", watch.ID).Msg("Failed to persist watch error state")
	}
	return fmt.Errorf("watch check failed for %s: %w", watch.URL, cause)
}

// Start launches the scheduler loop
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Watch scheduler disabled")
		return nil
	}
	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", tick), s.runTick); err != nil {
		return fmt.Errorf("failed to schedule watch tick: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Dur("tick", tick).Msg("Watch scheduler started")
	return nil
}

// Stop halts the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// runTick processes the most overdue watches, one batch per tick. A
// failing watch never stops the rest of the batch.
func (s *Service) runTick() {
	batch := s.config.BatchSize
	if batch <= 0 {
		batch = 50
	}
	ctx := context.Background()

	due, err := s.storage.GetDueWatches(ctx, batch)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load due watches")
		return
	}
	for _, w := range due {
		if err := s.Check(ctx, w.ID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("watch_id", w.ID).
				Str("url", w.URL).
				Msg("Watch check failed")
		}
	}
}

func (s *Service) notify(event *changeNotification, webhookURL string) {
	if webhookURL == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Str("watch_id", event.WatchID).Msg("Watch webhook marshal failed")
		return
	}
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn().Err(err).Str("watch_id", event.WatchID).Msg("Watch webhook request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("watch_id", event.WatchID).Msg("Watch webhook delivery failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn().
			Str("watch_id", event.WatchID).
			Int("status", resp.StatusCode).
			Msg("Watch webhook delivery rejected")
	}
}
