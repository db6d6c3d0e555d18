// Package store holds the authoritative snapshot per match. A registry
// goroutine owns the match table and one session goroutine per match owns
// that match's snapshot, so mutations for a given match are applied one
// at a time in arrival order while different matches proceed in parallel.
package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

var ErrNotFound = errors.New("match not found")
var ErrStoreClosed = errors.New("store closed")

// Publisher receives every delta in the order it was produced for its match.
type Publisher interface {
	Publish(matchID string, d types.Delta)
}

type storeMsg interface{ isStoreMsg() }

type ensureMatch struct {
	Snap  types.Snapshot
	Reply chan *session
}

type getMatch struct {
	MatchID string
	Reply   chan *session
}

type removeMatch struct{ MatchID string }

func (ensureMatch) isStoreMsg() {}
func (getMatch) isStoreMsg()    {}
func (removeMatch) isStoreMsg() {}

type Store struct {
	inbox    chan storeMsg
	sessions map[string]*session
	pub      Publisher
	repo     *Repository // nil means memory-only
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, pub Publisher, repo *Repository, log *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(parent)
	st := &Store{
		inbox:    make(chan storeMsg, 64),
		sessions: make(map[string]*session),
		pub:      pub,
		repo:     repo,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go st.loop()
	return st
}

func (st *Store) loop() {
	for {
		select {
		case <-st.ctx.Done():
			for _, s := range st.sessions {
				s.cancel()
			}
			clear(st.sessions)
			return

		case m := <-st.inbox:
			switch msg := m.(type) {
			case ensureMatch:
				if s := st.sessions[msg.Snap.MatchID]; s != nil {
					msg.Reply <- s
					break
				}
				s := newSession(st.ctx, msg.Snap, st.pub, st.repo, st.log)
				st.sessions[msg.Snap.MatchID] = s
				msg.Reply <- s

			case getMatch:
				msg.Reply <- st.sessions[msg.MatchID] // may be nil

			case removeMatch:
				if s := st.sessions[msg.MatchID]; s != nil {
					s.cancel()
					delete(st.sessions, msg.MatchID)
				}
			}
		}
	}
}

// Ensure creates the match entry if absent and returns the current snapshot.
// An existing match is left untouched: registration never resets live state.
func (st *Store) Ensure(snap types.Snapshot) (types.Snapshot, error) {
	reply := make(chan *session, 1)
	select {
	case st.inbox <- ensureMatch{Snap: snap, Reply: reply}:
	case <-st.ctx.Done():
		return types.Snapshot{}, ErrStoreClosed
	}
	select {
	case s := <-reply:
		return s.current()
	case <-st.ctx.Done():
		return types.Snapshot{}, ErrStoreClosed
	}
}

// Get returns the current snapshot for matchID.
func (st *Store) Get(matchID string) (types.Snapshot, error) {
	s, err := st.lookup(matchID)
	if err != nil {
		return types.Snapshot{}, err
	}
	return s.current()
}

// Apply runs one mutation against matchID under that match's serialization
// and returns the new snapshot plus the delta that was published.
func (st *Store) Apply(matchID string, op match.Op) (types.Snapshot, types.Delta, error) {
	s, err := st.lookup(matchID)
	if err != nil {
		return types.Snapshot{}, types.Delta{}, err
	}
	return s.apply(op)
}

// Remove deletes the match entry. Only the tournament-config surface calls
// this; live viewers of a removed match resync into NotFound.
func (st *Store) Remove(matchID string) {
	select {
	case st.inbox <- removeMatch{MatchID: matchID}:
	case <-st.ctx.Done():
	}
}

// Shutdown stops the registry and every session.
func (st *Store) Shutdown() {
	st.cancel()
}

func (st *Store) lookup(matchID string) (*session, error) {
	reply := make(chan *session, 1)
	select {
	case st.inbox <- getMatch{MatchID: matchID, Reply: reply}:
	case <-st.ctx.Done():
		return nil, ErrStoreClosed
	}
	select {
	case s := <-reply:
		if s == nil {
			return nil, ErrNotFound
		}
		return s, nil
	case <-st.ctx.Done():
		return nil, ErrStoreClosed
	}
}
