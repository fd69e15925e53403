package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"apicatalog/internal/model"
	"apicatalog/internal/storage"
)

// Scheduler selects entries due for re-crawl and applies crawl outcomes back
// onto them. It only ever drives the ACTIVE/BROKEN edge of the status
// machine: PENDING entries await admin review and are never selected, and
// INACTIVE is out of this pipeline's reach entirely.
type Scheduler struct {
	store storage.Storage
	log   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(store storage.Storage, log *slog.Logger) *Scheduler {
	return &Scheduler{store: store, log: log}
}

// ApisToCrawl returns up to n eligible entries, stalest first (ties broken
// by id), guaranteeing fair rotation across regular batches.
func (s *Scheduler) ApisToCrawl(ctx context.Context, n int) ([]model.Api, error) {
	return s.store.ListDueForCrawl(ctx, n)
}

// UpdateApiInfo merges non-empty parsed fields into the entry, marks it
// ACTIVE and verified, and stamps last_checked_at. Fields the parser left
// empty keep their previously stored values.
func (s *Scheduler) UpdateApiInfo(ctx context.Context, id int64, info *ParsedInfo, durationMS int) error {
	api, err := s.store.GetApi(ctx, id)
	if err != nil {
		return fmt.Errorf("load api %d: %w", id, err)
	}

	if info.Description != "" {
		api.Description = info.Description
	}
	if info.Category != "" {
		api.Category = info.Category
	}
	if len(info.Tags) > 0 {
		api.Tags = info.Tags
	}
	if info.PricingURL != "" {
		api.PricingURL = &info.PricingURL
	}
	if info.RegistrationURL != "" {
		api.RegistrationURL = &info.RegistrationURL
	}
	if info.ChangelogURL != "" {
		api.ChangelogURL = &info.ChangelogURL
	}
	if info.LogoURL != "" {
		api.LogoURL = &info.LogoURL
	}
	if info.PricingModel != "" {
		api.PricingModel = &info.PricingModel
	}
	if info.FreeTierNote != "" {
		api.FreeTierNote = &info.FreeTierNote
	}
	if info.SupportChannels != "" {
		api.SupportChannels = &info.SupportChannels
	}

	api.Status = model.StatusActive
	api.Verified = true
	api.ResponseTimeMS = &durationMS
	now := time.Now().UTC()
	api.LastCheckedAt = &now

	if err := s.store.UpdateApi(ctx, api); err != nil {
		return fmt.Errorf("update api %d: %w", id, err)
	}

	if info.Contact != "" {
		if err := s.store.UpdateProviderContact(ctx, api.ProviderID, info.Contact); err != nil {
			// Contact is auxiliary; losing it must not fail the crawl.
			s.log.Warn("update provider contact", "api_id", id, "error", err)
		}
	}
	return nil
}

// UpdateApiStatus sets the entry's status and stamps last_checked_at
// unconditionally. durationMS feeds batch statistics.
func (s *Scheduler) UpdateApiStatus(ctx context.Context, id int64, status model.ApiStatus, durationMS int) error {
	return s.store.UpdateApiStatus(ctx, id, status, durationMS)
}
