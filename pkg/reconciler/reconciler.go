// Package reconciler keeps a viewer's cached match snapshot converged with
// the server. Deltas merge onto the cache only while their versions stay
// contiguous; anything else forces a full reload. One Reconciler serves one
// match for one viewer session and is not safe for concurrent use — drive it
// from a single goroutine, the way a connection read loop naturally does.
package reconciler

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

var ErrClosed = errors.New("reconciler closed")

// ErrNotFound is returned by fetchers when the match has no server record.
// LoadFull treats it as permanent rather than retrying.
var ErrNotFound = errors.New("match not found")

type State int

const (
	StateUninitialized State = iota
	StateResyncing
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateResyncing:
		return "resyncing"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// Fetcher performs the request/response full-snapshot load.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, matchID string) (types.Snapshot, error)
}

type Option func(*Reconciler)

func WithLogger(log *zap.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// WithBackOff replaces the retry policy used by LoadFull. The factory is
// called once per load so retries always start from a fresh interval.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(r *Reconciler) { r.newBackOff = factory }
}

type Reconciler struct {
	matchID    string
	fetcher    Fetcher
	log        *zap.Logger
	newBackOff func() backoff.BackOff

	cache       *types.Snapshot
	lastVersion int64
	state       State
	closed      bool
}

func New(matchID string, fetcher Fetcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		matchID: matchID,
		fetcher: fetcher,
		log:     zap.NewNop(),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) State() State { return r.state }

// Snapshot returns the cached snapshot, if one is held. The bool is false
// before the first successful load and after Close.
func (r *Reconciler) Snapshot() (types.Snapshot, bool) {
	if r.cache == nil {
		return types.Snapshot{}, false
	}
	return *r.cache, true
}

// LoadFull fetches the authoritative snapshot and replaces the cache
// wholesale, retrying with backoff until ctx is cancelled or the match turns
// out not to exist. Deltas arriving while the load is in flight are dropped
// by OnDelta; ones the load already reflects die on the staleness check
// afterwards.
func (r *Reconciler) LoadFull(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	if r.state == StateSynced {
		r.state = StateResyncing
	}

	var snap types.Snapshot
	operation := func() error {
		s, err := r.fetcher.FetchSnapshot(ctx, r.matchID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return backoff.Permanent(err)
			}
			r.log.Warn("snapshot fetch failed, will retry", zap.String("match_id", r.matchID), zap.Error(err))
			return err
		}
		snap = s
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(r.newBackOff(), ctx)); err != nil {
		return err
	}

	// The view may have been torn down while the fetch was in flight.
	if r.closed {
		return ErrClosed
	}

	r.cache = &snap
	r.lastVersion = snap.Version
	r.state = StateSynced
	r.log.Debug("snapshot loaded", zap.String("match_id", r.matchID), zap.Int64("version", snap.Version))
	return nil
}

// OnDelta folds one broadcast delta into the cache.
//
// Contiguous versions merge by field-group overwrite; stale or duplicate
// versions are dropped silently; a version gap discards the delta and
// triggers one full reload — the cache is never patched from partial data.
// Deltas arriving before the first load, or while resyncing, are dropped;
// that is a normal race, not an error.
func (r *Reconciler) OnDelta(ctx context.Context, d types.Delta) error {
	if r.closed {
		return ErrClosed
	}
	if d.MatchID != r.matchID {
		return nil
	}
	if r.state != StateSynced || r.cache == nil {
		return nil
	}
	if err := d.Validate(); err != nil {
		// A malformed delta is a producer defect. Reject it outright rather
		// than risk corrupting the cache with a partial apply.
		r.log.Error("malformed delta rejected",
			zap.String("match_id", d.MatchID),
			zap.String("kind", string(d.Kind)),
			zap.Int64("version", d.Version))
		return err
	}

	switch {
	case d.Version <= r.lastVersion:
		// Duplicate or superseded; already reflected in the cache.
		return nil

	case d.Version == r.lastVersion+1:
		if err := d.Merge(r.cache); err != nil {
			return err
		}
		r.lastVersion = d.Version
		return nil

	default:
		r.log.Info("delta gap detected, resyncing",
			zap.String("match_id", r.matchID),
			zap.Int64("have", r.lastVersion),
			zap.Int64("received", d.Version))
		return r.LoadFull(ctx)
	}
}

// OnDisconnect invalidates trust in the cached version: deltas may have been
// missed while the connection was down, so the caller must LoadFull again
// after reconnecting before OnDelta merges anything.
func (r *Reconciler) OnDisconnect() {
	if r.closed || r.state == StateUninitialized {
		return
	}
	r.state = StateResyncing
}

// Close tears the session down, e.g. on navigation away from the match view.
// Any load still in flight is discarded when it completes.
func (r *Reconciler) Close() {
	r.closed = true
	r.cache = nil
	r.state = StateUninitialized
}
