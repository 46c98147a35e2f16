package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/metrics"
)

const (
	DefaultTTL = time.Hour
	// 32 bytes = 256 bits of entropy per handle.
	handleBytes = 32
)

type entry struct {
	ownerEmail string
	createdAt  time.Time
}

// Store maps opaque browser session handles to account emails. Entries live
// in process memory only and are lost on restart.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	random  io.Reader
	logger  *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

func NewStore(ttl time.Duration, logger *slog.Logger, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		random:  rand.Reader,
		logger:  logger.With("component", "session_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores a new session for ownerEmail and returns its handle.
func (s *Store) Create(ownerEmail string) (string, error) {
	raw := make([]byte, handleBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", fmt.Errorf("generate session handle: %w", err)
	}
	handle := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	s.entries[handle] = entry{ownerEmail: ownerEmail, createdAt: s.now()}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return handle, nil
}

// Resolve returns the owner of handle. Unknown and expired handles both
// report ok=false.
func (s *Store) Resolve(handle string) (string, bool) {
	s.mu.RLock()
	e, ok := s.entries[handle]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.createdAt.Add(s.ttl)) {
		return "", false
	}
	return e.ownerEmail, true
}

// Destroy removes handle. Removing an unknown handle is a no-op.
func (s *Store) Destroy(handle string) {
	s.mu.Lock()
	delete(s.entries, handle)
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops every entry created at or before now-ttl.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	removed := 0
	for h, e := range s.entries {
		if !e.createdAt.After(cutoff) {
			delete(s.entries, h)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	if removed > 0 {
		metrics.SessionsExpiredTotal.Add(float64(removed))
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", "interval", interval, "ttl", s.ttl)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shut down")
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
