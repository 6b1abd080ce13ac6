// ABOUTME: Tests for the webhook notifier and its cooldown behavior.
// ABOUTME: Covers payload shape, cooldown dropping, and failure handling.

package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// webhookRecorder captures webhook deliveries and answers with a fixed status.
type webhookRecorder struct {
	status   int
	payloads []payload
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			w.payloads = append(w.payloads, p)
		}
		rw.WriteHeader(w.status)
	}
}

func TestNotify_DeliversPayload(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n := New(srv.URL, time.Minute, testLogger())

	err := n.Notify(context.Background(), "agent-1 is down")

	require.NoError(t, err)
	require.Len(t, rec.payloads, 1)
	assert.Equal(t, "agent-1 is down", rec.payloads[0].Text)
}

func TestNotify_NoWebhookIsNoOp(t *testing.T) {
	n := New("", time.Minute, testLogger())

	err := n.Notify(context.Background(), "nobody will hear this")

	assert.NoError(t, err)
}

func TestNotify_CooldownDropsSecondSend(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n := New(srv.URL, time.Minute, testLogger())

	require.NoError(t, n.Notify(context.Background(), "first"))
	require.NoError(t, n.Notify(context.Background(), "second"))

	// Second message dropped silently: at most one delivery.
	assert.Len(t, rec.payloads, 1)
}

func TestNotify_DeliversAfterCooldownExpires(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n := New(srv.URL, time.Minute, testLogger())
	clock := time.Now()
	n.now = func() time.Time { return clock }

	require.NoError(t, n.Notify(context.Background(), "first"))

	clock = clock.Add(61 * time.Second)
	require.NoError(t, n.Notify(context.Background(), "second"))

	assert.Len(t, rec.payloads, 2)
}

func TestNotify_FailureDoesNotConsumeCooldown(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n := New(srv.URL, time.Minute, testLogger())

	err := n.Notify(context.Background(), "first")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	// The failed send left the cooldown window open, so a retry attempt
	// goes out on the wire immediately.
	rec.status = http.StatusOK
	require.NoError(t, n.Notify(context.Background(), "second"))

	assert.Len(t, rec.payloads, 2)
	assert.Equal(t, "second", rec.payloads[1].Text)
}

func TestNotify_TransportErrorIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	n := New(srv.URL, time.Minute, testLogger())

	err := n.Notify(context.Background(), "into the void")

	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestNotify_DroppedMessageLeavesTimestampUnchanged(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusOK}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n := New(srv.URL, time.Minute, testLogger())
	clock := time.Now()
	n.now = func() time.Time { return clock }

	require.NoError(t, n.Notify(context.Background(), "first"))

	// 10 seconds later: dropped, and the drop must not extend the window.
	clock = clock.Add(10 * time.Second)
	require.NoError(t, n.Notify(context.Background(), "dropped"))
	require.Len(t, rec.payloads, 1)

	// 61s after the first (successful) send the window has passed, which
	// would not be true if the dropped attempt had refreshed it.
	clock = clock.Add(51 * time.Second)
	require.NoError(t, n.Notify(context.Background(), "third"))
	assert.Len(t, rec.payloads, 2)
}
