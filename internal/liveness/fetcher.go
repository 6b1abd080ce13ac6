// ABOUTME: Liveness fetcher deriving document keys and extracting latest thoughts.
// ABOUTME: Key layout addresses externally-defined storage locations; do not change it.

package liveness

import (
	"context"
	"fmt"
	"log/slog"
)

// factorySuffixLen is how many trailing characters of the game factory
// identifier participate in the collection key.
const factorySuffixLen = 5

// Fetcher looks up an agent's most recent liveness record.
type Fetcher struct {
	store  Store
	logger *slog.Logger
}

// NewFetcher creates a fetcher backed by the given store.
func NewFetcher(store Store, logger *slog.Logger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// CollectionKey derives the working-memory collection name for an agent.
// The agent number is 1-based (index + 1).
func CollectionKey(agentIndex int, sessionID int64, gameFactory string) string {
	suffix := gameFactory
	if len(suffix) > factorySuffixLen {
		suffix = suffix[len(suffix)-factorySuffixLen:]
	}
	return fmt.Sprintf("f_%s_s_%d_a_%d", suffix, sessionID, agentIndex+1)
}

// DocumentKey derives the working-memory document id for an agent.
func DocumentKey(agentIndex int) string {
	return fmt.Sprintf("working-memory:cli:agent-%d", agentIndex+1)
}

// Latest returns the agent's maximum-timestamp thought, or nil when no
// document exists or the stored thoughts collection is missing or empty.
// A nil result is "no data", not a fetch failure; transport errors are
// returned as errors.
func (f *Fetcher) Latest(ctx context.Context, agentIndex int, sessionID int64, gameFactory string) (*Thought, error) {
	collection := CollectionKey(agentIndex, sessionID, gameFactory)
	docID := DocumentKey(agentIndex)

	f.logger.Debug("checking working memory",
		"collection", collection,
		"doc", docID,
	)

	doc, err := f.store.Get(ctx, collection, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		f.logger.Debug("no working-memory document",
			"agent", agentIndex,
			"session_id", sessionID,
		)
		return nil, nil
	}

	thoughts := doc.Thoughts()
	if len(thoughts) == 0 {
		f.logger.Debug("no well-formed thoughts recorded",
			"agent", agentIndex,
			"session_id", sessionID,
		)
		return nil, nil
	}

	latest := thoughts[0]
	for _, t := range thoughts[1:] {
		if t.Timestamp > latest.Timestamp {
			latest = t
		}
	}
	return &latest, nil
}
