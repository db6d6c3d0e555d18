package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

// chanPublisher records published deltas for assertions.
type chanPublisher struct {
	ch chan types.Delta
}

func newChanPublisher(buf int) *chanPublisher {
	return &chanPublisher{ch: make(chan types.Delta, buf)}
}

func (p *chanPublisher) Publish(_ string, d types.Delta) { p.ch <- d }

func recvPublished(t *testing.T, p *chanPublisher, within time.Duration) types.Delta {
	t.Helper()
	select {
	case d := <-p.ch:
		return d
	case <-time.After(within):
		t.Fatalf("timed out waiting for published delta")
		return types.Delta{} // unreachable
	}
}

func recvNothing(t *testing.T, p *chanPublisher, within time.Duration) {
	t.Helper()
	select {
	case d := <-p.ch:
		t.Fatalf("expected no publish, got %+v", d)
	case <-time.After(within):
	}
}

func testSnapshot(matchID string) types.Snapshot {
	return types.Snapshot{
		MatchID:  matchID,
		Team1:    types.TeamInfo{ID: "t1", Name: "Lions"},
		Team2:    types.TeamInfo{ID: "t2", Name: "Wolves"},
		Division: types.DivisionInfo{ID: "d1", Name: "Division 1"},
		Status:   types.StatusNotStarted,
	}
}

func newTestStore(t *testing.T, pub Publisher) *Store {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, pub, nil, zap.NewNop())
}

func TestStore_EnsureAndGet(t *testing.T) {
	st := newTestStore(t, newChanPublisher(8))

	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	snap, err := st.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.MatchID != "m1" || snap.Version != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if _, err := st.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStore_Ensure_DoesNotResetLiveState(t *testing.T) {
	pub := newChanPublisher(8)
	st := newTestStore(t, pub)

	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, _, err := st.Apply("m1", match.Op{Type: match.OpIncrementScore, Side: types.SideTeam1}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Re-registration of a live match returns the current state, not a reset.
	snap, err := st.Ensure(testSnapshot("m1"))
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if snap.ScoreTeam1 != 1 || snap.Version != 1 {
		t.Fatalf("ensure reset live state: %+v", snap)
	}
}

func TestStore_Apply_VersionIncrementsAndPublishes(t *testing.T) {
	pub := newChanPublisher(8)
	st := newTestStore(t, pub)
	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	ops := []match.Op{
		{Type: match.OpSetStatus, Status: types.StatusInProgress},
		{Type: match.OpIncrementScore, Side: types.SideTeam1},
		{Type: match.OpIncrementCard, Color: types.CardRed},
	}
	for i, op := range ops {
		snap, delta, err := st.Apply("m1", op)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		want := int64(i + 1)
		if snap.Version != want || delta.Version != want {
			t.Fatalf("apply %d: want version %d, got snap=%d delta=%d", i, want, snap.Version, delta.Version)
		}
		published := recvPublished(t, pub, 100*time.Millisecond)
		if published.Version != want {
			t.Fatalf("publish %d: want version %d, got %d", i, want, published.Version)
		}
	}
}

func TestStore_Apply_UnknownMatch(t *testing.T) {
	st := newTestStore(t, newChanPublisher(1))
	_, _, err := st.Apply("nope", match.Op{Type: match.OpIncrementScore, Side: types.SideTeam1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStore_Apply_FailedMutationPublishesNothing(t *testing.T) {
	pub := newChanPublisher(1)
	st := newTestStore(t, pub)
	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	_, _, err := st.Apply("m1", match.Op{Type: match.OpIncrementScore, Side: "team9"})
	if !errors.Is(err, match.ErrUnknownSide) {
		t.Fatalf("want ErrUnknownSide, got %v", err)
	}
	recvNothing(t, pub, 100*time.Millisecond)
}

func TestStore_Apply_ConcurrentIncrements_NoLostUpdates(t *testing.T) {
	const n = 50
	pub := newChanPublisher(n + 1)
	st := newTestStore(t, pub)
	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := st.Apply("m1", match.Op{Type: match.OpIncrementScore, Side: types.SideTeam1}); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := st.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.ScoreTeam1 != n {
		t.Fatalf("lost updates: want score %d, got %d", n, snap.ScoreTeam1)
	}
	if snap.Version != n {
		t.Fatalf("want version %d, got %d", n, snap.Version)
	}

	// Published versions form exactly 1..n with no duplicates.
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		d := recvPublished(t, pub, time.Second)
		if d.Version < 1 || d.Version > n || seen[d.Version] {
			t.Fatalf("bad published version %d", d.Version)
		}
		seen[d.Version] = true
	}
}

func TestStore_Remove(t *testing.T) {
	st := newTestStore(t, newChanPublisher(8))
	if _, err := st.Ensure(testSnapshot("m1")); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	st.Remove("m1")

	// The registry processes messages in order, so the next Get observes
	// the removal.
	if _, err := st.Get("m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after remove, got %v", err)
	}
}
