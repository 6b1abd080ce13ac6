// ABOUTME: Pure health classification for agent liveness timestamps.
// ABOUTME: Decides Healthy/Down/Unknown from "now" and the latest recorded thought.

package health

import (
	"time"

	"github.com/defi-space/ds-agent-heartbeat/internal/liveness"
)

// DownThreshold is how stale the latest thought may be before the agent
// is considered down.
const DownThreshold = 10 * time.Minute

// NoData is the downtime sentinel used when no liveness record exists.
const NoData int64 = -1

// Verdict is the outcome of classifying an agent's liveness.
type Verdict int

const (
	// Healthy means the latest thought is within the down threshold.
	Healthy Verdict = iota
	// Down means the latest thought is older than the down threshold.
	Down
	// Unknown means no thought (or no timestamp) was available at all.
	Unknown
)

// String returns a human-readable verdict name.
func (v Verdict) String() string {
	switch v {
	case Healthy:
		return "healthy"
	case Down:
		return "down"
	case Unknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Result carries the verdict and, for Down agents, the downtime in whole
// minutes. For Unknown agents Downtime is the NoData sentinel.
type Result struct {
	Verdict  Verdict
	Downtime int64
}

// Classify decides an agent's health from the evaluation time and its latest
// thought. A nil thought, or a thought without a timestamp, is Unknown.
// Classify has no state and no side effects.
func Classify(now time.Time, thought *liveness.Thought) Result {
	if thought == nil || thought.Timestamp <= 0 {
		return Result{Verdict: Unknown, Downtime: NoData}
	}

	elapsed := now.UnixMilli() - thought.Timestamp
	if elapsed > DownThreshold.Milliseconds() {
		return Result{Verdict: Down, Downtime: elapsed / time.Minute.Milliseconds()}
	}

	return Result{Verdict: Healthy}
}
