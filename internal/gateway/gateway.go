// Package gateway sits between the transports and the store: it resolves the
// caller's identity, checks match assignment, translates actions into store
// operations and returns the resulting snapshot synchronously. The broadcast
// to everyone else happens on the store's publish path; a failed mutation
// never produces a delta.
package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/auth"
	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/internal/metrics"
	"github.com/DoyleJ11/matchday-backend/internal/store"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

var ErrInvalidMatch = errors.New("invalid match registration")

type Gateway struct {
	store *store.Store
	auth  auth.Authorizer
	log   *zap.Logger
}

func New(st *store.Store, authorizer auth.Authorizer, log *zap.Logger) *Gateway {
	return &Gateway{store: st, auth: authorizer, log: log}
}

// FetchSnapshot serves a client's full load. Any valid identity may read.
func (g *Gateway) FetchSnapshot(ctx context.Context, token, matchID string) (types.Snapshot, error) {
	if _, err := g.auth.Identify(ctx, token); err != nil {
		return types.Snapshot{}, err
	}
	return g.store.Get(matchID)
}

func (g *Gateway) IncrementScore(ctx context.Context, token, matchID string, side types.Side) (types.Snapshot, error) {
	return g.mutate(ctx, token, matchID, match.Op{Type: match.OpIncrementScore, Side: side})
}

func (g *Gateway) SetStatus(ctx context.Context, token, matchID string, status types.Status) (types.Snapshot, error) {
	return g.mutate(ctx, token, matchID, match.Op{Type: match.OpSetStatus, Status: status})
}

func (g *Gateway) IncrementCard(ctx context.Context, token, matchID string, color types.CardColor) (types.Snapshot, error) {
	return g.mutate(ctx, token, matchID, match.Op{Type: match.OpIncrementCard, Color: color})
}

func (g *Gateway) mutate(ctx context.Context, token, matchID string, op match.Op) (types.Snapshot, error) {
	id, err := g.auth.Identify(ctx, token)
	if err != nil {
		return types.Snapshot{}, err
	}
	if !id.CanMutate(matchID) {
		return types.Snapshot{}, auth.ErrUnauthorized
	}

	snap, _, err := g.store.Apply(matchID, op)
	if err != nil {
		return types.Snapshot{}, err
	}

	metrics.MutationsApplied.WithLabelValues(string(op.Type)).Inc()
	g.log.Info("mutation applied",
		zap.String("match_id", matchID),
		zap.String("op", string(op.Type)),
		zap.String("user_id", id.UserID),
		zap.Int64("version", snap.Version))
	return snap, nil
}

// RegisterMatch is the tournament-config surface: it creates the snapshot
// entry when a match is scheduled. Admin only. Registering an existing match
// returns its live snapshot untouched.
func (g *Gateway) RegisterMatch(ctx context.Context, token string, snap types.Snapshot) (types.Snapshot, error) {
	id, err := g.auth.Identify(ctx, token)
	if err != nil {
		return types.Snapshot{}, err
	}
	if id.Role != auth.RoleAdmin {
		return types.Snapshot{}, auth.ErrUnauthorized
	}
	if snap.MatchID == "" {
		return types.Snapshot{}, ErrInvalidMatch
	}
	if snap.Status == "" {
		snap.Status = types.StatusNotStarted
	}
	snap.Version = 0
	return g.store.Ensure(snap)
}

// RemoveMatch archives the match out of the live store. Admin only.
func (g *Gateway) RemoveMatch(ctx context.Context, token, matchID string) error {
	id, err := g.auth.Identify(ctx, token)
	if err != nil {
		return err
	}
	if id.Role != auth.RoleAdmin {
		return auth.ErrUnauthorized
	}
	g.store.Remove(matchID)
	return nil
}
