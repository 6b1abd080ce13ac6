// ABOUTME: In-memory set of game sessions under heartbeat observation.
// ABOUTME: Mutated by operator commands, read and pruned by the poll cycle.

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
)

// ErrInvalidIdentifier indicates the session id does not parse as a
// non-negative integer.
var ErrInvalidIdentifier = errors.New("invalid session identifier")

// ErrAlreadyMonitored indicates the session is already in the registry.
var ErrAlreadyMonitored = errors.New("session already monitored")

// ErrNotMonitored indicates the session is not in the registry.
var ErrNotMonitored = errors.New("session not monitored")

// ErrSessionNotFound indicates the metadata source does not know the session.
var ErrSessionNotFound = errors.New("session not found")

// SessionChecker confirms that a session exists before it is admitted.
// Implemented by the indexer client.
type SessionChecker interface {
	SessionExists(ctx context.Context, sessionID int64) (bool, error)
}

// Registry is the set of currently monitored session ids. Ids are
// canonicalized to int64 at this boundary, so distinct string encodings of
// the same numeric value collapse to one entry. It is never persisted;
// restart loses the set.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]struct{}
	checker  SessionChecker
	logger   *slog.Logger
}

// New creates an empty registry. The checker gates Add; eviction and Remove
// never consult it.
func New(checker SessionChecker, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]struct{}),
		checker:  checker,
		logger:   logger,
	}
}

// ParseID canonicalizes a raw session identifier. Negative values and
// non-numeric strings are rejected with ErrInvalidIdentifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id, nil
}

// Add admits a session after confirming it exists upstream. Returns
// ErrAlreadyMonitored, ErrInvalidIdentifier, or ErrSessionNotFound per the
// command contract. A checker transport error is reported as
// ErrSessionNotFound: the source of truth could not vouch for the session.
func (r *Registry) Add(ctx context.Context, raw string) (int64, error) {
	id, err := ParseID(raw)
	if err != nil {
		return 0, err
	}

	if r.Contains(id) {
		return id, fmt.Errorf("%w: %d", ErrAlreadyMonitored, id)
	}

	exists, err := r.checker.SessionExists(ctx, id)
	if err != nil {
		r.logger.Warn("session existence check failed", "session_id", id, "error", err)
		return id, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if !exists {
		return id, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock: an identical Add may have won the race
	// while the existence check was in flight.
	if _, ok := r.sessions[id]; ok {
		return id, fmt.Errorf("%w: %d", ErrAlreadyMonitored, id)
	}
	r.sessions[id] = struct{}{}

	r.logger.Info("session added to watch list",
		"session_id", id,
		"monitored", len(r.sessions),
	)
	return id, nil
}

// Remove drops a session from the set. Returns ErrNotMonitored (and
// ErrInvalidIdentifier for unparseable input); removal itself is
// unconditional.
func (r *Registry) Remove(raw string) (int64, error) {
	id, err := ParseID(raw)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return id, fmt.Errorf("%w: %d", ErrNotMonitored, id)
	}
	delete(r.sessions, id)

	r.logger.Info("session removed from watch list",
		"session_id", id,
		"monitored", len(r.sessions),
	)
	return id, nil
}

// Evict unconditionally removes a session. Used by the poll cycle when the
// upstream source reports the session gone, ended, or suspended.
func (r *Registry) Evict(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Contains reports whether a session is currently monitored.
func (r *Registry) Contains(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// List returns the monitored session ids in ascending numeric order.
func (r *Registry) List() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of monitored sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear empties the registry. It always succeeds.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) > 0 {
		r.logger.Info("watch list cleared", "dropped", len(r.sessions))
	}
	r.sessions = make(map[int64]struct{})
}
