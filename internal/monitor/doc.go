// Package monitor runs the periodic health-check cycle over the watched
// session set.
//
// # Cycle
//
// Each cycle performs, in order:
//
//  1. Prune: fetch the session list from the indexer and evict sessions
//     that no longer exist, have ended, or are suspended. Ended and
//     suspended evictions produce a one-time notice; vanished sessions
//     are evicted silently.
//  2. Roster: resolve the surviving sessions to their agents in a single
//     batched indexer query.
//  3. Classify: fetch each agent's latest recorded thought and classify
//     it against the downtime threshold.
//  4. Alert: if any agent is down or has no data, send one grouped
//     message covering all of them.
//
// A cycle that fails partway (indexer or document store unreachable)
// logs the error and leaves the watch list untouched; the next tick
// retries from scratch. Delivery failures on the alert channel are also
// non-fatal.
//
// # Clock
//
// The monitor reads the clock once per cycle so every agent in a cycle
// is classified against the same instant.
package monitor
