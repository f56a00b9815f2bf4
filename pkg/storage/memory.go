package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot per student in a map.
// It is safe for concurrent use by multiple goroutines.
//
// With a TTL, a background goroutine drops snapshots whose GeneratedAt is
// older than the TTL; call Stop to end it. Use RedisStore when several
// forecaster replicas must share snapshots.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	ttl       time.Duration

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore creates a store that keeps snapshots until replaced.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
	}
}

// NewMemoryStoreWithTTL creates a store that evicts snapshots older than ttl.
// cleanupInterval <= 0 defaults to one minute. Panics if ttl <= 0.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		snapshots:     make(map[string]Snapshot),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop ends the cleanup goroutine and waits for it. Safe to call more than
// once and on stores without a TTL.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
		<-s.cleanupDone
		s.cleanupTicker.Stop()
	})
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.evictExpired(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) evictExpired(now time.Time) {
	if s.ttl == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for student, snapshot := range s.snapshots {
		if now.Sub(snapshot.GeneratedAt) > s.ttl {
			delete(s.snapshots, student)
		}
	}
}

// Put replaces the student's snapshot.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := ValidateStudent(snapshot.Student); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.Student] = snapshot
	return nil
}

// GetLatest returns the student's snapshot and whether one exists.
func (s *MemoryStore) GetLatest(ctx context.Context, student string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, found := s.snapshots[student]
	return snapshot, found, nil
}
