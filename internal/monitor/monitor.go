// ABOUTME: Poll scheduler driving the heartbeat cycle on a fixed interval.
// ABOUTME: Evicts dead sessions, classifies agent liveness, and raises one grouped alert.

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/defi-space/ds-agent-heartbeat/internal/alert"
	"github.com/defi-space/ds-agent-heartbeat/internal/dedupe"
	"github.com/defi-space/ds-agent-heartbeat/internal/health"
	"github.com/defi-space/ds-agent-heartbeat/internal/indexer"
	"github.com/defi-space/ds-agent-heartbeat/internal/liveness"
	"github.com/defi-space/ds-agent-heartbeat/internal/registry"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = 5 * time.Minute

// evictionDedupeTTL is how long a (session, reason) eviction notice stays
// suppressed after being announced once.
const evictionDedupeTTL = 24 * time.Hour

// MetadataSource supplies session status and the batched agent roster.
// Implemented by the indexer client.
type MetadataSource interface {
	Status(ctx context.Context, sessionID int64) indexer.Status
	Agents(ctx context.Context, sessionIDs []int64) ([]indexer.Agent, error)
}

// LivenessSource supplies the latest recorded thought for an agent.
// Implemented by the liveness fetcher.
type LivenessSource interface {
	Latest(ctx context.Context, agentIndex int, sessionID int64, gameFactory string) (*liveness.Thought, error)
}

// AlertSink delivers alert messages. Implemented by the notifier; delivery
// is best-effort and cooldown-gated.
type AlertSink interface {
	Notify(ctx context.Context, message string) error
}

// Monitor owns the poll loop. Cycles run inline in the loop so two cycles
// never overlap.
type Monitor struct {
	registry  *registry.Registry
	metadata  MetadataSource
	liveness  LivenessSource
	notifier  AlertSink
	evictions *dedupe.Cache
	logger    *slog.Logger
	interval  time.Duration
	mention   string

	// now is swappable for tests.
	now func() time.Time
}

// Config contains the monitor's collaborators and settings.
type Config struct {
	Registry *registry.Registry
	Metadata MetadataSource
	Liveness LivenessSource
	Notifier AlertSink
	Logger   *slog.Logger
	Interval time.Duration
	// Mention is prepended to down-agent alerts (e.g. "<!channel>").
	// Empty disables the prefix.
	Mention string
}

// New creates a monitor. An interval of zero falls back to DefaultInterval.
func New(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		registry:  cfg.Registry,
		metadata:  cfg.Metadata,
		liveness:  cfg.Liveness,
		notifier:  cfg.Notifier,
		evictions: dedupe.New(evictionDedupeTTL),
		logger:    cfg.Logger,
		interval:  interval,
		mention:   cfg.Mention,
		now:       time.Now,
	}
}

// Close releases the eviction dedupe cache. Safe to call multiple times;
// Run calls it on exit.
func (m *Monitor) Close() {
	m.evictions.Close()
}

// Run ticks until the context is cancelled. Cycle failures are logged and
// the next tick proceeds independently; a cycle is never retried mid-flight.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("heartbeat monitor started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.Close()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("heartbeat monitor stopped")
			return
		case <-ticker.C:
			if err := m.RunCycle(ctx); err != nil {
				m.logger.Error("poll cycle failed", "error", err)
			}
		}
	}
}

// RunCycle performs a single poll cycle: prune dead sessions, fetch the
// roster for survivors, classify every agent, and send one grouped alert if
// anything is down.
func (m *Monitor) RunCycle(ctx context.Context) error {
	logger := m.logger.With("cycle_id", uuid.New().String())

	survivors := m.pruneSessions(ctx, logger)
	if len(survivors) == 0 {
		logger.Info("no sessions under observation")
		return nil
	}

	agents, err := m.metadata.Agents(ctx, survivors)
	if err != nil {
		return fmt.Errorf("fetching agent roster: %w", err)
	}
	logger.Info("checking agents", "agents", len(agents), "sessions", len(survivors))

	now := m.now()
	var down []alert.Entry
	for _, agent := range agents {
		thought, err := m.liveness.Latest(ctx, agent.Index, agent.SessionID, agent.GameFactory)
		if err != nil {
			return fmt.Errorf("fetching liveness for agent %d in session %d: %w",
				agent.Index, agent.SessionID, err)
		}

		result := health.Classify(now, thought)
		switch result.Verdict {
		case health.Healthy:
			logger.Debug("agent healthy", "agent", agent.Index, "session_id", agent.SessionID)
		default:
			logger.Warn("agent "+result.Verdict.String(),
				"agent", agent.Index,
				"session_id", agent.SessionID,
				"downtime_minutes", result.Downtime,
			)
			down = append(down, alert.Entry{
				AgentIndex: agent.Index,
				SessionID:  agent.SessionID,
				Downtime:   result.Downtime,
			})
		}
	}

	if len(down) == 0 {
		logger.Info("all agents healthy", "agents", len(agents))
		return nil
	}

	message := alert.Format(down)
	if m.mention != "" {
		message = m.mention + " the following agents are down:\n" + message
	}
	if err := m.notifier.Notify(ctx, message); err != nil {
		logger.Error("down-agent alert not delivered", "error", err)
	}
	return nil
}

// pruneSessions checks every monitored session's upstream status and evicts
// the nonexistent, ended, and suspended ones. Ended/suspended evictions get
// a one-time notice; vanished sessions are dropped silently. Returns the
// sessions that survive this cycle.
func (m *Monitor) pruneSessions(ctx context.Context, logger *slog.Logger) []int64 {
	var survivors []int64
	for _, id := range m.registry.List() {
		status := m.metadata.Status(ctx, id)
		switch {
		case !status.Exists:
			m.registry.Evict(id)
			logger.Info("session gone upstream, evicted", "session_id", id)

		case status.Ended, status.Suspended:
			m.registry.Evict(id)
			reason := "ended"
			if !status.Ended && status.Suspended {
				reason = "suspended"
			}
			logger.Info("session "+reason+", evicted", "session_id", id)

			key := fmt.Sprintf("evicted:%d:%s", id, reason)
			if m.evictions.CheckAndMark(key) {
				continue
			}
			if err := m.notifier.Notify(ctx, alert.FormatEviction(id, reason)); err != nil {
				logger.Error("eviction alert not delivered", "session_id", id, "error", err)
			}

		default:
			survivors = append(survivors, id)
		}
	}
	return survivors
}
