// ABOUTME: Groups down-agent entries by session and renders the alert message.
// ABOUTME: One composite message per poll cycle to respect the notifier cooldown.

package alert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/defi-space/ds-agent-heartbeat/internal/health"
)

// Entry describes one down or unknown agent found during a poll cycle.
// AgentIndex is the 0-based index; rendering is 1-based. Downtime is whole
// minutes since the last thought, or health.NoData when nothing was recorded.
type Entry struct {
	AgentIndex int
	SessionID  int64
	Downtime   int64
}

// Format renders the composite alert for a cycle. Sessions appear in
// ascending numeric order, agents within a session in ascending index order.
// An empty input renders an empty string.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	bySession := make(map[int64][]Entry)
	for _, e := range entries {
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	sessionIDs := make([]int64, 0, len(bySession))
	for id := range bySession {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Slice(sessionIDs, func(i, j int) bool { return sessionIDs[i] < sessionIDs[j] })

	var b strings.Builder
	for i, id := range sessionIDs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("[session-%d]\n", id))

		group := bySession[id]
		sort.Slice(group, func(i, j int) bool { return group[i].AgentIndex < group[j].AgentIndex })
		for _, e := range group {
			b.WriteString(fmt.Sprintf("agent-%d :: %s\n", e.AgentIndex+1, describeDowntime(e.Downtime)))
		}
	}
	return b.String()
}

// FormatEviction renders the one-time notice emitted when a monitored
// session is dropped because its game ended or was suspended.
func FormatEviction(sessionID int64, reason string) string {
	return fmt.Sprintf("session-%d is no longer monitored: game %s", sessionID, reason)
}

// describeDowntime renders the per-agent downtime line fragment.
func describeDowntime(minutes int64) string {
	switch {
	case minutes == health.NoData:
		return "no data available"
	case minutes == 1:
		return "down for 1 minute"
	default:
		return fmt.Sprintf("down for %d minutes", minutes)
	}
}
