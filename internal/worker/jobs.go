package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/metrics"
)

// Job type constants.
const (
	JobTypeDrafts       = "expired_drafts"
	JobTypePreviewURLs  = "preview_urls"
	JobTypeDialogs      = "confirm_dialogs"
	JobTypeResolvers    = "address_resolvers"
	JobTypeOptionsCache = "options_cache"
)

// StagedCleaner deletes the staged files of drafts the store removed.
// service.UploadService satisfies it.
type StagedCleaner interface {
	Cleanup(ctx context.Context, drafts []draft.Draft) int
}

// DraftJob deletes expired drafts and then their staged files.
type DraftJob struct {
	Drafts draft.Store
	Files  StagedCleaner
	Logger *slog.Logger
}

func (j DraftJob) Type() string { return JobTypeDrafts }

func (j DraftJob) Handle(ctx context.Context, now time.Time) error {
	expired, err := j.Drafts.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired drafts: %w", err)
	}
	files := j.Files.Cleanup(ctx, expired)

	metrics.Purged("drafts", len(expired))
	metrics.Purged("staged_files", files)
	if len(expired) > 0 {
		j.Logger.Info("Purged expired drafts", "drafts", len(expired), "files", files)
	}
	return nil
}

// Purger drops entries older than cutoff. upload.ObjectURLs,
// confirm.Registry and address.Registry satisfy it.
type Purger interface {
	Purge(cutoff time.Time) int
}

// PurgeJob drops in-memory entries idle for longer than Retention.
type PurgeJob struct {
	Name      string
	Target    Purger
	Retention time.Duration
}

func (j PurgeJob) Type() string { return j.Name }

func (j PurgeJob) Handle(_ context.Context, now time.Time) error {
	metrics.Purged(j.Name, j.Target.Purge(now.Add(-j.Retention)))
	return nil
}

// CachePurger erases expired cache entries. provinces.DiskCache
// satisfies it.
type CachePurger interface {
	Purge(ctx context.Context) int
}

// CacheJob erases expired option list responses from disk.
type CacheJob struct {
	Cache CachePurger
}

func (j CacheJob) Type() string { return JobTypeOptionsCache }

func (j CacheJob) Handle(ctx context.Context, _ time.Time) error {
	metrics.Purged(JobTypeOptionsCache, j.Cache.Purge(ctx))
	return ctx.Err()
}
