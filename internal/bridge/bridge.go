// ABOUTME: Matrix command bridge for the heartbeat monitor.
// ABOUTME: Listens for watchdog commands in allowed rooms and replies with acknowledgments.

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/defi-space/ds-agent-heartbeat/internal/commands"
	"github.com/defi-space/ds-agent-heartbeat/internal/config"
)

// sendTimeout bounds Matrix API calls so shutdown never hangs on a reply.
const sendTimeout = 30 * time.Second

// startupRetries bounds the initial connectivity check. Exhausting it is
// fatal; a monitor without its command channel should fail loudly at boot.
const startupRetries = 5

// Bridge connects the operator's Matrix rooms to the command handler.
type Bridge struct {
	cfg     config.MatrixConfig
	matrix  *mautrix.Client
	handler *commands.Handler
	logger  *slog.Logger

	// ctx is the parent context for command-processing goroutines.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Matrix bridge from the given configuration.
func New(cfg config.MatrixConfig, handler *commands.Handler, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Bridge{
		cfg:     cfg,
		matrix:  client,
		handler: handler,
		logger:  logger,
	}, nil
}

// Connect verifies the homeserver accepts our credentials, retrying with
// exponential backoff. Persistent failure here is a startup failure and the
// caller exits non-zero.
func (b *Bridge) Connect(ctx context.Context) error {
	check := func() error {
		_, err := b.matrix.Whoami(ctx)
		if err != nil {
			b.logger.Warn("matrix connectivity check failed", "error", err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), startupRetries), ctx)
	if err := backoff.Retry(check, policy); err != nil {
		return fmt.Errorf("connecting to matrix homeserver: %w", err)
	}

	b.logger.Info("connected to matrix homeserver",
		"homeserver", b.cfg.Homeserver,
		"user_id", b.cfg.UserID,
	)
	return nil
}

// Run starts the sync loop and blocks until the context is cancelled or the
// sync fails. Transient socket errors inside the sync loop are the client's
// to retry; only a terminal sync error is returned.
func (b *Bridge) Run(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("command bridge running", "prefix", b.cfg.CommandPrefix)

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down command bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters incoming messages down to watchdog commands.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(b.cfg.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	roomID := evt.RoomID.String()
	if !b.isRoomAllowed(roomID) {
		b.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		return
	}

	body := strings.TrimSpace(content.Body)
	if !strings.HasPrefix(body, b.cfg.CommandPrefix) {
		return
	}
	body = strings.TrimSpace(strings.TrimPrefix(body, b.cfg.CommandPrefix))

	b.logger.Info("received command",
		"room", roomID,
		"sender", evt.Sender.String(),
		"command", body,
	)

	// Process in a goroutine so a slow existence check never blocks sync.
	go b.processCommand(b.ctx, evt.RoomID, body)
}

// processCommand runs one operator command: immediate ack where the command
// is network-bound, then the result as a follow-up message.
func (b *Bridge) processCommand(ctx context.Context, roomID id.RoomID, body string) {
	cmd := commands.Parse(body)

	if ack := b.handler.Ack(cmd); ack != "" {
		b.reply(roomID, ack)
	}

	b.reply(roomID, b.handler.Execute(ctx, cmd))
}

// isRoomAllowed checks the allowed-rooms filter. An empty filter allows all
// joined rooms.
func (b *Bridge) isRoomAllowed(roomID string) bool {
	if len(b.cfg.AllowedRooms) == 0 {
		return true
	}
	for _, allowed := range b.cfg.AllowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// reply sends a text message to a room.
func (b *Bridge) reply(roomID id.RoomID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if _, err := b.matrix.SendText(ctx, roomID, text); err != nil {
		b.logger.Error("failed to send reply", "room", roomID.String(), "error", err)
	}
}
