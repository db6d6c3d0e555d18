// Package ws is the push transport: one websocket per viewer connection,
// carrying subscribe/unsubscribe actions and agent mutations inbound, and
// delta broadcasts plus synchronous mutation replies outbound.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/auth"
	"github.com/DoyleJ11/matchday-backend/internal/gateway"
	"github.com/DoyleJ11/matchday-backend/internal/hub"
	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/internal/store"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

func Handler(gw *gateway.Gateway, h *hub.Hub, log *zap.Logger, writeTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sub := &hub.Subscriber{
			ID:     uuid.NewString(),
			Outbox: make(chan types.Delta, 16),
		}
		// Drop closes the outbox, which ends the writer goroutine. It also
		// tears down every subscription this connection holds; clients
		// re-subscribe explicitly after reconnecting.
		defer h.Drop(sub.ID)

		clog := log.With(zap.String("subscriber_id", sub.ID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for d := range sub.Outbox {
				delta := d
				writeMsg(writeCtx, conn, writeTimeout, ServerMessage{Type: MsgDelta, Delta: &delta})
			}
			// The hub closed the outbox, either on teardown or because this
			// consumer fell too far behind. Close the socket so the client's
			// read fails and it reconnects and resyncs instead of waiting on
			// a silent connection.
			conn.Close(websocket.StatusPolicyViolation, "slow consumer")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMsg(r.Context(), conn, writeTimeout, ServerMessage{Type: MsgError, Error: "bad json"})
				continue
			}

			reply := dispatch(r.Context(), gw, h, sub, token, cm)
			if reply != nil {
				writeMsg(r.Context(), conn, writeTimeout, *reply)
			}
		}
	}
}

// dispatch handles one client action and returns the synchronous reply, or
// nil when the action has none.
func dispatch(ctx context.Context, gw *gateway.Gateway, h *hub.Hub, sub *hub.Subscriber, token string, cm ClientMessage) *ServerMessage {
	switch cm.Type {
	case ActionSubscribe:
		// The existence/auth check runs before registering interest so a
		// bogus match id fails loudly instead of subscribing to nothing.
		if _, err := gw.FetchSnapshot(ctx, token, cm.MatchID); err != nil {
			return errMessage(cm.MatchID, err)
		}
		if !h.Subscribe(sub, cm.MatchID) {
			// Dropped as a slow consumer; the connection is being closed.
			return &ServerMessage{Type: MsgError, MatchID: cm.MatchID, Error: "connection closing"}
		}
		return &ServerMessage{Type: MsgSubscribed, MatchID: cm.MatchID}

	case ActionUnsubscribe:
		// Fire and forget; navigating away must never block on the server.
		h.Unsubscribe(sub.ID, cm.MatchID)
		return nil

	case ActionIncrementScore:
		snap, err := gw.IncrementScore(ctx, token, cm.MatchID, types.Side(cm.Team))
		return snapshotOrError(cm.MatchID, snap, err)

	case ActionSetStatus:
		snap, err := gw.SetStatus(ctx, token, cm.MatchID, types.Status(cm.Status))
		return snapshotOrError(cm.MatchID, snap, err)

	case ActionIncrementCard:
		snap, err := gw.IncrementCard(ctx, token, cm.MatchID, types.CardColor(cm.Color))
		return snapshotOrError(cm.MatchID, snap, err)

	default:
		return &ServerMessage{Type: MsgError, Error: "unknown action"}
	}
}

func snapshotOrError(matchID string, snap types.Snapshot, err error) *ServerMessage {
	if err != nil {
		return errMessage(matchID, err)
	}
	return &ServerMessage{Type: MsgSnapshot, MatchID: matchID, Snapshot: &snap}
}

func errMessage(matchID string, err error) *ServerMessage {
	msg := "internal error"
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		msg = "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		msg = "match not found"
	case errors.Is(err, match.ErrUnknownSide),
		errors.Is(err, match.ErrUnknownStatus),
		errors.Is(err, match.ErrUnknownColor):
		msg = err.Error()
	}
	return &ServerMessage{Type: MsgError, MatchID: matchID, Error: msg}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

// bearerToken accepts the credential in the Authorization header or, since
// browsers cannot set headers on websocket upgrades, a token query param.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return r.URL.Query().Get("token")
}
