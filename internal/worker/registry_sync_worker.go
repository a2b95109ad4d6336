package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/model"
)

// RetryDelay is how long the worker waits before resubscribing after the
// change feed drops.
var RetryDelay = 3 * time.Second

// SnapshotSource is the registry change feed. InstanceID marks snapshots
// published by this process.
type SnapshotSource interface {
	Subscribe(ctx context.Context) (<-chan model.InstitutesSnapshot, func() error, error)
	InstanceID() string
}

// Registry is the in-memory institute list kept in step with the file.
type Registry interface {
	Reload()
}

// RegistrySyncWorker reloads the local registry when another instance
// publishes a change to the shared institutes file.
type RegistrySyncWorker struct {
	source   SnapshotSource
	registry Registry
	log      zerolog.Logger
}

func NewRegistrySyncWorker(source SnapshotSource, registry Registry, log zerolog.Logger) *RegistrySyncWorker {
	return &RegistrySyncWorker{
		source:   source,
		registry: registry,
		log:      log.With().Str("component", "registry_sync_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled.
func (w *RegistrySyncWorker) Start(ctx context.Context) {
	w.log.Info().Msg("RegistrySyncWorker started")

	for {
		if err := w.follow(ctx); err != nil {
			w.log.Error().Err(err).Dur("retry_in", RetryDelay).Msg("Institute feed unavailable")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("RegistrySyncWorker stopped")
			return
		case <-time.After(RetryDelay):
		}
	}
}

// follow applies snapshots until the feed closes.
func (w *RegistrySyncWorker) follow(ctx context.Context) error {
	snapshots, stop, err := w.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			w.apply(snap)
		}
	}
}

func (w *RegistrySyncWorker) apply(snap model.InstitutesSnapshot) {
	// Our own publishes echo back; memory already holds them or something newer.
	if snap.Origin == w.source.InstanceID() {
		return
	}
	w.registry.Reload()
	w.log.Info().Int("count", len(snap.Institutes)).Msg("Registry reloaded after remote change")
}
