// Package realtime implements the Realtime Transport described in the component design: it terminates one
// WebSocket per client, sends the actor's current snapshot first, then relays the actor's event stream in order
// until the actor drops the subscriber or the client disconnects. It owns no group state itself — the Group Actor
// decides what to send and when a subscriber is no longer viable; this package only pumps bytes.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// writeWait is the time allowed to write a single message to the peer, mirroring the gateway's own write deadline.
const writeWait = 10 * time.Second

// Resolver is the subset of *actor.Registry the transport needs: find-or-rehydrate a group's actor by id.
type Resolver interface {
	Resolve(ctx context.Context, groupID string) (*actor.Actor, error)
}

// Handler serves one WebSocket connection per subscriber of a group's event stream.
type Handler struct {
	registry Resolver
	log      zerolog.Logger
}

// NewHandler constructs a realtime Handler backed by registry.
func NewHandler(registry Resolver, logger zerolog.Logger) *Handler {
	return &Handler{registry: registry, log: logger.With().Str("component", "realtime").Logger()}
}

// Serve runs for the lifetime of one upgraded WebSocket connection subscribed to groupID. It blocks until the
// client disconnects or the actor drops the subscription, at which point the connection is closed.
func (h *Handler) Serve(conn *websocket.Conn, groupID string) {
	ctx := context.Background()

	a, err := h.registry.Resolve(ctx, groupID)
	if err != nil {
		h.closeWithCode(conn, websocket.CloseNormalClosure, "group not found")
		return
	}

	sub, snapshot, err := a.Subscribe(ctx, 0)
	if err != nil {
		h.closeWithCode(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer a.Unsubscribe(sub)

	if !h.writeEvent(conn, snapshot) {
		return
	}

	// readPump's only job is to notice the client going away; clients never send anything meaningful over this
	// socket, so any inbound message (or read error) is treated the same as a close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sub.Events():
			if !h.writeEvent(conn, ev) {
				return
			}
		case <-sub.Done():
			h.closeWithCode(conn, sub.CloseCode(), "")
			return
		case <-readDone:
			return
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, ev wheel.Event) bool {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", ev.GroupID).Msg("failed to marshal outbound event")
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		h.log.Debug().Err(err).Msg("websocket write error")
		return false
	}
	return true
}

func (h *Handler) closeWithCode(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}
