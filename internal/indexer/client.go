// ABOUTME: GraphQL client for the agent/session metadata source.
// ABOUTME: Fetches the agent roster for monitored sessions and the full session list.

package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// agentRosterQuery fetches agents belonging to the given sessions, with the
// per-agent session info needed to derive liveness document keys.
const agentRosterQuery = `
  query AgentRoster($sessions: [String!]) {
    agent(where: {sessionId: {_in: $sessions}}) {
      agentIndex
      sessionId
      session {
        gameFactory
      }
    }
  }
`

// sessionListQuery fetches the full session list. There is no server-side
// single-session filter, so existence checks scan this list client-side.
const sessionListQuery = `
  query SessionList {
    session {
      sessionIndex
      address
      gameOver
      gameSuspended
    }
  }
`

// Agent is one roster entry from the metadata source.
type Agent struct {
	Index       int
	SessionID   int64
	GameFactory string
}

// Session is one entry of the full session list.
type Session struct {
	Index     int64
	Address   string
	Ended     bool
	Suspended bool
}

// Client talks to the GraphQL metadata endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates a metadata client for the given GraphQL endpoint.
func NewClient(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// graphqlRequest is the POST body for a GraphQL query.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlError is one entry of a GraphQL error response.
type graphqlError struct {
	Message string `json:"message"`
}

// Agents returns the roster of agents in the given sessions, in one batched
// query. An empty session list returns an empty roster without a network call.
func (c *Client) Agents(ctx context.Context, sessionIDs []int64) ([]Agent, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	filter := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		filter[i] = strconv.FormatInt(id, 10)
	}

	var result struct {
		Agent []struct {
			AgentIndex int    `json:"agentIndex"`
			SessionID  string `json:"sessionId"`
			Session    struct {
				GameFactory string `json:"gameFactory"`
			} `json:"session"`
		} `json:"agent"`
	}
	if err := c.query(ctx, agentRosterQuery, map[string]any{"sessions": filter}, &result); err != nil {
		return nil, fmt.Errorf("fetching agent roster: %w", err)
	}

	agents := make([]Agent, 0, len(result.Agent))
	for _, a := range result.Agent {
		sessionID, err := strconv.ParseInt(a.SessionID, 10, 64)
		if err != nil {
			c.logger.Warn("skipping agent with non-numeric session id",
				"agent", a.AgentIndex,
				"session_id", a.SessionID,
			)
			continue
		}
		agents = append(agents, Agent{
			Index:       a.AgentIndex,
			SessionID:   sessionID,
			GameFactory: a.Session.GameFactory,
		})
	}
	return agents, nil
}

// Sessions returns the full session list.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var result struct {
		Session []struct {
			SessionIndex  int64  `json:"sessionIndex"`
			Address       string `json:"address"`
			GameOver      bool   `json:"gameOver"`
			GameSuspended bool   `json:"gameSuspended"`
		} `json:"session"`
	}
	if err := c.query(ctx, sessionListQuery, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching session list: %w", err)
	}

	sessions := make([]Session, 0, len(result.Session))
	for _, s := range result.Session {
		sessions = append(sessions, Session{
			Index:     s.SessionIndex,
			Address:   s.Address,
			Ended:     s.GameOver,
			Suspended: s.GameSuspended,
		})
	}
	return sessions, nil
}

// query executes a GraphQL request and unmarshals the data payload into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshaling query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("metadata source returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}
