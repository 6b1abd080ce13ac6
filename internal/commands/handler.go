// ABOUTME: Operator command parsing and execution for the watch list.
// ABOUTME: Maps add/remove/list/clear onto the registry and renders acknowledgments.

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/defi-space/ds-agent-heartbeat/internal/registry"
)

// Usage is returned for unrecognized actions.
const Usage = `watchdog commands:
  add <id>     start monitoring a game session
  remove <id>  stop monitoring a game session
  list         show monitored sessions
  clear        stop monitoring everything`

// Action identifies an operator command.
type Action int

const (
	ActionUnknown Action = iota
	ActionAdd
	ActionRemove
	ActionList
	ActionClear
)

// Command is a parsed operator command.
type Command struct {
	Action Action
	Arg    string
}

// Parse splits raw command text (prefix already stripped) into a Command.
func Parse(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{Action: ActionUnknown}
	}

	cmd := Command{}
	if len(fields) > 1 {
		cmd.Arg = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "add":
		cmd.Action = ActionAdd
	case "remove":
		cmd.Action = ActionRemove
	case "list":
		cmd.Action = ActionList
	case "clear":
		cmd.Action = ActionClear
	}
	return cmd
}

// Handler executes operator commands against the registry.
type Handler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewHandler creates a command handler.
func NewHandler(reg *registry.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: reg, logger: logger}
}

// Ack returns the immediate acknowledgment for a command, or "" when the
// command completes fast enough that its result is the acknowledgment.
// Add is network-bound (existence check), so its outcome arrives as a
// follow-up message after this ack.
func (h *Handler) Ack(cmd Command) string {
	if cmd.Action == ActionAdd && cmd.Arg != "" {
		return fmt.Sprintf("checking session %s...", cmd.Arg)
	}
	return ""
}

// Execute runs a command and returns the operator-facing result text.
// Command errors are terminal per-command; nothing is retried.
func (h *Handler) Execute(ctx context.Context, cmd Command) string {
	switch cmd.Action {
	case ActionAdd:
		return h.add(ctx, cmd.Arg)
	case ActionRemove:
		return h.remove(cmd.Arg)
	case ActionList:
		return h.list()
	case ActionClear:
		h.registry.Clear()
		return "watch list cleared"
	default:
		return Usage
	}
}

func (h *Handler) add(ctx context.Context, arg string) string {
	id, err := h.registry.Add(ctx, arg)
	switch {
	case errors.Is(err, registry.ErrInvalidIdentifier):
		return fmt.Sprintf("%q is not a valid session id", arg)
	case errors.Is(err, registry.ErrAlreadyMonitored):
		return fmt.Sprintf("session %d is already monitored", id)
	case errors.Is(err, registry.ErrSessionNotFound):
		return fmt.Sprintf("session %d was not found on the indexer", id)
	case err != nil:
		h.logger.Error("add command failed", "session_id", arg, "error", err)
		return fmt.Sprintf("could not add session %s", arg)
	}
	return fmt.Sprintf("now monitoring session %d (%s)", id, h.listFragment())
}

func (h *Handler) remove(arg string) string {
	id, err := h.registry.Remove(arg)
	switch {
	case errors.Is(err, registry.ErrInvalidIdentifier):
		return fmt.Sprintf("%q is not a valid session id", arg)
	case errors.Is(err, registry.ErrNotMonitored):
		return fmt.Sprintf("session %d is not monitored", id)
	case err != nil:
		h.logger.Error("remove command failed", "session_id", arg, "error", err)
		return fmt.Sprintf("could not remove session %s", arg)
	}
	return fmt.Sprintf("stopped monitoring session %d (%s)", id, h.listFragment())
}

func (h *Handler) list() string {
	ids := h.registry.List()
	if len(ids) == 0 {
		return "no sessions are monitored"
	}
	return "monitored sessions: " + joinIDs(ids)
}

// listFragment summarizes the registry for add/remove acknowledgments.
func (h *Handler) listFragment() string {
	ids := h.registry.List()
	if len(ids) == 0 {
		return "watch list empty"
	}
	return "watching: " + joinIDs(ids)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
