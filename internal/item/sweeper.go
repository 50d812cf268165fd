package item

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/barangku/service/internal/metrics"
	"github.com/barangku/service/internal/storage"
)

const sweepBatchSize = 100

// Sweeper removes stored images whose items were deleted but whose files
// could not be removed at the time. It implements suture.Service.
type Sweeper struct {
	repo     Repository
	store    storage.Storage
	interval time.Duration
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(repo Repository, store storage.Storage, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, store: store, interval: interval}
}

// Serve sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("image sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string {
	return "image-sweeper"
}

// Sweep processes one batch of queued keys and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	keys, err := s.repo.PendingImageDeletions(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if err := removeImage(ctx, s.repo, s.store, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("image still not removable")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Int("pending", len(keys)-removed).Msg("image sweep")
	}
	return removed, nil
}

// removeImage deletes key from storage and clears it from the queue. On
// failure the attempt is recorded and the key stays queued.
func removeImage(ctx context.Context, repo Repository, store storage.Storage, key string) error {
	err := store.Delete(ctx, key)
	metrics.RecordImageDeletion(err)
	if err != nil {
		if rerr := repo.RecordImageDeletionFailure(ctx, key, err); rerr != nil {
			log.Error().Err(rerr).Str("key", key).Msg("record image deletion failure")
		}
		return fmt.Errorf("remove image %q: %w", key, err)
	}
	if err := repo.ResolveImageDeletion(ctx, key); err != nil {
		return fmt.Errorf("clear image %q from queue: %w", key, err)
	}
	return nil
}
