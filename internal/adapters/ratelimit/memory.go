// Package ratelimit provides RateLimitStore implementations: an in-memory
// map for single-instance deployments and a Redis-backed store for
// multi-instance ones.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the RateLimitStore interface.
// Entries are created lazily per client key and evicted by a periodic sweep
// once their last submission falls outside the window.
type MemoryStore struct {
	entries   map[string]*core.RateLimitEntry
	mu        sync.Mutex
	max       int
	window    time.Duration
	sweepFreq time.Duration
	logger    *zap.Logger
	stopCh    chan struct{}
	now       func() time.Time
}

// NewMemoryStore creates an in-memory rate limit store and starts its sweep
func NewMemoryStore(max int, window, sweepFreq time.Duration, logger *zap.Logger) *MemoryStore {
	store := &MemoryStore{
		entries:   make(map[string]*core.RateLimitEntry),
		max:       max,
		window:    window,
		sweepFreq: sweepFreq,
		logger:    logger,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}

	// Start background sweep
	go store.startSweepTask()

	return store
}

// Allow records a submission attempt for the key and reports whether it is
// within the limit. The whole check-and-increment runs under the lock so
// concurrent requests cannot both slip under the cap.
func (s *MemoryStore) Allow(ctx context.Context, clientKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowAt(clientKey, s.now()), nil
}

// allowAt implements Allow at an explicit instant. Callers must hold the lock.
func (s *MemoryStore) allowAt(clientKey string, now time.Time) bool {
	entry, ok := s.entries[clientKey]
	if !ok {
		// First submission from this key
		s.entries[clientKey] = &core.RateLimitEntry{
			ClientKey:      clientKey,
			Submissions:    1,
			WindowStart:    now,
			LastSubmission: now,
		}
		return true
	}

	// A fully elapsed window restarts the count no matter how high it got
	if now.Sub(entry.WindowStart) > s.window {
		entry.Submissions = 1
		entry.WindowStart = now
		entry.LastSubmission = now
		return true
	}

	if entry.Submissions >= s.max {
		// At the cap: deny without incrementing further
		return false
	}

	entry.Submissions++
	entry.LastSubmission = now
	return true
}

// Sweep removes entries whose last submission is older than the window.
// Entries still inside an active window are never removed.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	removed := 0
	for key, entry := range s.entries {
		if entry.LastSubmission.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("Swept stale rate limit entries", zap.Int("removed", removed))
	}
}

// startSweepTask runs the sweep on a fixed interval to bound memory growth
func (s *MemoryStore) startSweepTask() {
	ticker := time.NewTicker(s.sweepFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background sweep task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
