// ABOUTME: Session status lookup and the fail-closed classification step.
// ABOUTME: Transport failures classify as "does not exist" so callers evict, not alert.

package indexer

import "context"

// Status reflects whether a session still exists upstream and whether its
// game has ended or been suspended. Fetched fresh every cycle; never cached.
type Status struct {
	Exists    bool
	Ended     bool
	Suspended bool
}

// Status looks up one session in the full session list. Transport failures
// classify identically to "not found" (eviction-for-nonexistence is cheaper
// than false alerting); the failure itself is logged so the two cases stay
// distinguishable in telemetry.
func (c *Client) Status(ctx context.Context, sessionID int64) Status {
	sessions, err := c.Sessions(ctx)
	if err != nil {
		c.logger.Warn("session status fetch failed, treating as nonexistent",
			"session_id", sessionID,
			"error", err,
		)
		return classifyFetchFailure()
	}
	return classifySession(sessions, sessionID)
}

// SessionExists reports whether a session is present in the full session
// list. Unlike Status, transport failures surface as errors so the command
// path can report them instead of silently admitting or rejecting a session.
func (c *Client) SessionExists(ctx context.Context, sessionID int64) (bool, error) {
	sessions, err := c.Sessions(ctx)
	if err != nil {
		return false, err
	}
	return classifySession(sessions, sessionID).Exists, nil
}

// classifySession locates a session in the list and reflects its flags.
// A session missing from the list does not exist.
func classifySession(sessions []Session, sessionID int64) Status {
	for _, s := range sessions {
		if s.Index == sessionID {
			return Status{Exists: true, Ended: s.Ended, Suspended: s.Suspended}
		}
	}
	return Status{}
}

// classifyFetchFailure is the named fail-closed mapping for transport
// errors. Kept separate from classifySession so tests can pin the policy.
func classifyFetchFailure() Status {
	return Status{}
}
