package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/repository"
)

// InstituteStore is the durable backing of the registry.
type InstituteStore interface {
	Load() ([]string, error)
	Save(names []string) error
}

// InstituteNotifier is told about every committed change.
type InstituteNotifier interface {
	Publish(ctx context.Context, names []string) error
}

// RegistryLocker serialises registry writes across processes that share the
// same store.
type RegistryLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// InstituteService owns the process-wide institute registry. Every mutation
// re-reads the store and persists under the same lock that guards the
// in-memory list, so concurrent admins cannot lose each other's updates.
type InstituteService struct {
	mu       sync.RWMutex
	names    []string
	store    InstituteStore
	notifier InstituteNotifier
	locker   RegistryLocker
	log      zerolog.Logger
}

// NewInstituteService loads the registry from store. notifier may be nil.
func NewInstituteService(store InstituteStore, notifier InstituteNotifier, log zerolog.Logger) *InstituteService {
	s := &InstituteService{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "institute_service").Logger(),
	}
	s.Reload()
	return s
}

// WithLocker makes every mutation hold l while it reads and writes the store.
// Call before the service is shared.
func (s *InstituteService) WithLocker(l RegistryLocker) *InstituteService {
	s.locker = l
	return s
}

// Reload replaces the in-memory list with the stored one. Unreadable storage
// yields an empty registry.
func (s *InstituteService) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.Load()
	if err != nil {
		evt := s.log.Error()
		if errors.Is(err, repository.ErrStoreCorrupt) {
			evt = s.log.Warn()
		}
		evt.Err(err).Msg("Institute store unreadable, starting empty")
		names = []string{}
	}
	s.names = names

	s.log.Info().Int("count", len(names)).Msg("Institutes loaded")
}

// List returns a copy of the registry in insertion order.
func (s *InstituteService) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names)
}

// Contains reports exact, case-sensitive membership.
func (s *InstituteService) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.names, name)
}

// Add appends a trimmed name. Empty or already-present names are a no-op.
// Reports whether the registry changed.
func (s *InstituteService) Add(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	changed, err := s.mutate(ctx, func(current []string) ([]string, bool) {
		if slices.Contains(current, name) {
			return current, false
		}
		return append(current, name), true
	})
	if err != nil {
		s.log.Error().Err(err).Str("institute", name).Msg("Failed to persist institute add")
		return false, err
	}
	if changed {
		s.log.Info().Str("institute", name).Msg("Institute added")
	}
	return changed, nil
}

// Remove deletes name if present. Absent names are a no-op. Reports whether
// the registry changed.
func (s *InstituteService) Remove(ctx context.Context, name string) (bool, error) {
	changed, err := s.mutate(ctx, func(current []string) ([]string, bool) {
		idx := slices.Index(current, name)
		if idx < 0 {
			return current, false
		}
		return slices.Delete(current, idx, idx+1), true
	})
	if err != nil {
		s.log.Error().Err(err).Str("institute", name).Msg("Failed to persist institute removal")
		return false, err
	}
	if changed {
		s.log.Info().Str("institute", name).Msg("Institute removed")
	}
	return changed, nil
}

// mutate applies fn to the stored list and persists the result. The store is
// re-read first so writes from other processes are kept. On a failed save the
// in-memory list matches what was read.
func (s *InstituteService) mutate(ctx context.Context, fn func(current []string) ([]string, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx)
		if err != nil {
			return false, fmt.Errorf("lock institutes: %w", err)
		}
		defer release()
	}

	current, err := s.store.Load()
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStoreCorrupt):
		s.log.Warn().Err(err).Msg("Institute store unreadable, rewriting from memory")
		current = slices.Clone(s.names)
	default:
		return false, fmt.Errorf("load institutes: %w", err)
	}
	s.names = current

	next, changed := fn(slices.Clone(current))
	if !changed {
		return false, nil
	}
	if err := s.store.Save(next); err != nil {
		return false, err
	}
	s.names = next

	// Published under the lock so subscribers see snapshots in commit order.
	s.publish(ctx, next)
	return true, nil
}

// RemoveForSession removes name and clears the acting session's selection
// when it pointed at the removed institute.
func (s *InstituteService) RemoveForSession(ctx context.Context, sess *model.Session, name string) error {
	if name == "" {
		return nil
	}
	if _, err := s.Remove(ctx, name); err != nil {
		return err
	}
	if sess.SelectedInstitute == name {
		sess.SelectedInstitute = ""
	}
	return nil
}

// Select sets the session's current institute. Empty or unregistered names
// leave the selection unchanged. Reports whether the selection was set.
func (s *InstituteService) Select(sess *model.Session, name string) bool {
	if name == "" || !s.Contains(name) {
		return false
	}
	sess.SelectedInstitute = name
	return true
}

// ValidateSelection clears a selection whose institute has been removed,
// possibly by another session. Reports whether the session changed.
func (s *InstituteService) ValidateSelection(sess *model.Session) bool {
	if sess.SelectedInstitute == "" || s.Contains(sess.SelectedInstitute) {
		return false
	}
	sess.SelectedInstitute = ""
	return true
}

func (s *InstituteService) publish(ctx context.Context, names []string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, names); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish institute change")
	}
}
