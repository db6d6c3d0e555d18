// Command spectator follows one match from a terminal: it dials the server's
// websocket, subscribes, and keeps a reconciled local snapshot that it prints
// on every change. It doubles as a live exercise of the reconciler's
// reconnect-and-resync path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/ws"
	"github.com/DoyleJ11/matchday-backend/pkg/reconciler"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	matchID := flag.String("match", "", "match id to follow")
	token := flag.String("token", "", "bearer token")
	flag.Parse()

	if *matchID == "" {
		log.Fatal("missing -match")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := &reconciler.HTTPFetcher{BaseURL: *addr, Token: *token}
	rec := reconciler.New(*matchID, fetcher, reconciler.WithLogger(logger))
	defer rec.Close()

	wsURL := "ws" + strings.TrimPrefix(*addr, "http") + "/ws?token=" + *token

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // keep reconnecting until interrupted

	for ctx.Err() == nil {
		err := followMatch(ctx, rec, wsURL, *matchID)
		if ctx.Err() != nil {
			break
		}
		logger.Warn("connection lost, reconnecting", zap.Error(err))
		rec.OnDisconnect()

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
		}
	}
}

// followMatch runs one connection lifetime: subscribe, full load, then merge
// deltas until the connection drops. Single goroutine, matching the
// reconciler's single-threaded contract.
func followMatch(ctx context.Context, rec *reconciler.Reconciler, wsURL, matchID string) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sub, err := json.Marshal(ws.ClientMessage{Type: ws.ActionSubscribe, MatchID: matchID})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, sub); err != nil {
		return err
	}

	// Subscription is established before the load so no delta published
	// after the fetched version can be missed.
	if err := rec.LoadFull(ctx); err != nil {
		return err
	}
	if snap, ok := rec.Snapshot(); ok {
		printSnapshot(snap)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var msg ws.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case ws.MsgDelta:
			if msg.Delta == nil {
				continue
			}
			if err := rec.OnDelta(ctx, *msg.Delta); err != nil {
				return err
			}
			if snap, ok := rec.Snapshot(); ok {
				printSnapshot(snap)
			}
		case ws.MsgError:
			return fmt.Errorf("server error: %s", msg.Error)
		}
	}
}

func printSnapshot(s types.Snapshot) {
	fmt.Printf("[v%d] %s %d - %d %s | %s | yellow %d red %d\n",
		s.Version, s.Team1.Name, s.ScoreTeam1, s.ScoreTeam2, s.Team2.Name,
		s.Status, s.Cards.Yellow, s.Cards.Red)
}
