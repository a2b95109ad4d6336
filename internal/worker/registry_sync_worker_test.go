package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/repository"
	"github.com/stemsi/institute-portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	fails int
	ch    chan model.InstitutesSnapshot
	subs  atomic.Int32
}

func (s *fakeSource) InstanceID() string { return "self" }

func (s *fakeSource) Subscribe(ctx context.Context) (<-chan model.InstitutesSnapshot, func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return nil, nil, errors.New("feed down")
	}
	s.subs.Add(1)
	return s.ch, func() error { return nil }, nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	reloads int
}

func (r *fakeRegistry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
}

func (r *fakeRegistry) reloadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

func TestRegistrySyncSkipsOwnSnapshots(t *testing.T) {
	src := &fakeSource{ch: make(chan model.InstitutesSnapshot)}
	reg := &fakeRegistry{}
	w := NewRegistrySyncWorker(src, reg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// A stale echo of our own earlier write must not trigger a reload.
	src.ch <- model.InstitutesSnapshot{Institutes: []string{"A"}, Origin: "self"}
	src.ch <- model.InstitutesSnapshot{Institutes: []string{"A", "B"}, Origin: "other"}
	// Unbuffered sends above guarantee the first was consumed; this one
	// guarantees the second was applied.
	src.ch <- model.InstitutesSnapshot{Institutes: []string{"A"}, Origin: "self"}

	assert.Equal(t, 1, reg.reloadCount())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRegistrySyncResubscribes(t *testing.T) {
	old := RetryDelay
	RetryDelay = 10 * time.Millisecond
	t.Cleanup(func() { RetryDelay = old })

	src := &fakeSource{fails: 2, ch: make(chan model.InstitutesSnapshot)}
	reg := &fakeRegistry{}
	w := NewRegistrySyncWorker(src, reg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	select {
	case src.ch <- model.InstitutesSnapshot{Institutes: []string{"X"}}:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never resubscribed")
	}
	assert.EqualValues(t, 1, src.subs.Load())
}

func TestRegistrySyncAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	fs := afero.NewMemMapFs()
	localFeed := service.NewInstituteBroadcaster(rdb, zerolog.Nop())
	remoteFeed := service.NewInstituteBroadcaster(rdb, zerolog.Nop())
	local := service.NewInstituteService(repository.NewInstituteRepository(fs, "/institutes.json"), localFeed, zerolog.Nop())
	remote := service.NewInstituteService(repository.NewInstituteRepository(fs, "/institutes.json"), remoteFeed, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewRegistrySyncWorker(localFeed, local, zerolog.Nop()).Start(ctx)

	ch := config.CacheKey.InstitutesChannel()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(ch)[ch] > 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err := remote.Add(ctx, "Institute A")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return local.Contains("Institute A")
	}, 2*time.Second, 10*time.Millisecond)
}
