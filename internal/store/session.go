package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

type sessionMsg interface{ isSessionMsg() }

type applyOp struct {
	Op    match.Op
	Reply chan applyResult
}

type applyResult struct {
	Snap  types.Snapshot
	Delta types.Delta
	Err   error
}

type getSnap struct {
	Reply chan types.Snapshot
}

func (applyOp) isSessionMsg() {}
func (getSnap) isSessionMsg() {}

// session owns one match's snapshot. Its loop is the per-match mutual
// exclusion: read-modify-write happens only here, so concurrent increments
// from two agents never lose an update.
type session struct {
	inbox  chan sessionMsg
	snap   types.Snapshot
	pub    Publisher
	saves  chan types.Snapshot
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(parent context.Context, initial types.Snapshot, pub Publisher, repo *Repository, log *zap.Logger) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		inbox:  make(chan sessionMsg, 64),
		snap:   initial,
		pub:    pub,
		log:    log.With(zap.String("match_id", initial.MatchID)),
		ctx:    ctx,
		cancel: cancel,
	}
	if repo != nil {
		s.saves = make(chan types.Snapshot, 16)
		go s.saver(repo)
	}
	go s.loop()
	return s
}

func (s *session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case applyOp:
				next, delta, err := match.Apply(s.snap, msg.Op)
				if err != nil {
					msg.Reply <- applyResult{Err: err}
					break
				}
				s.snap = next
				msg.Reply <- applyResult{Snap: next, Delta: delta}
				// Publishing from inside the loop keeps per-match delivery
				// order equal to mutation order.
				s.pub.Publish(next.MatchID, delta)
				s.persist(next)

			case getSnap:
				msg.Reply <- s.snap
			}
		}
	}
}

func (s *session) apply(op match.Op) (types.Snapshot, types.Delta, error) {
	reply := make(chan applyResult, 1)
	select {
	case s.inbox <- applyOp{Op: op, Reply: reply}:
	case <-s.ctx.Done():
		return types.Snapshot{}, types.Delta{}, ErrNotFound
	}
	select {
	case res := <-reply:
		return res.Snap, res.Delta, res.Err
	case <-s.ctx.Done():
		// The session may have replied just before shutting down.
		select {
		case res := <-reply:
			return res.Snap, res.Delta, res.Err
		default:
			return types.Snapshot{}, types.Delta{}, ErrNotFound
		}
	}
}

func (s *session) current() (types.Snapshot, error) {
	reply := make(chan types.Snapshot, 1)
	select {
	case s.inbox <- getSnap{Reply: reply}:
	case <-s.ctx.Done():
		return types.Snapshot{}, ErrNotFound
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.ctx.Done():
		select {
		case snap := <-reply:
			return snap, nil
		default:
			return types.Snapshot{}, ErrNotFound
		}
	}
}

// persist hands the snapshot to the saver without blocking the loop. A full
// queue skips the save; the next mutation will persist a newer snapshot
// anyway.
func (s *session) persist(snap types.Snapshot) {
	if s.saves == nil {
		return
	}
	select {
	case s.saves <- snap:
	default:
		s.log.Warn("save queue full, skipping persist", zap.Int64("version", snap.Version))
	}
}

// saver is the single writer for this match's row, so upserts land in
// version order.
func (s *session) saver(repo *Repository) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case snap := <-s.saves:
			if err := repo.Save(s.ctx, snap); err != nil {
				s.log.Error("persist snapshot failed", zap.Int64("version", snap.Version), zap.Error(err))
			}
		}
	}
}
