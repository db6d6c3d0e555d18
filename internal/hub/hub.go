// Package hub fans deltas out to every connection subscribed to a match.
// It knows nothing about transports: a subscriber is an id plus an outbox
// channel, and whoever owns the connection drains it.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/metrics"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

// Subscriber is one live connection's receiving end. The hub owns closing
// Outbox: it is closed exactly once, when the subscriber is dropped.
type Subscriber struct {
	ID     string
	Outbox chan types.Delta

	dropped bool // guarded by the hub mutex; set once when the outbox closes
}

type Hub struct {
	mu      sync.Mutex
	matches map[string]map[string]*Subscriber // matchID -> subscriber id -> subscriber
	bySub   map[string]*subEntry              // subscriber id -> its subscriptions
	log     *zap.Logger
}

type subEntry struct {
	sub     *Subscriber
	matches map[string]struct{}
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		matches: make(map[string]map[string]*Subscriber),
		bySub:   make(map[string]*subEntry),
		log:     log,
	}
}

// Subscribe registers sub's interest in matchID and reports whether the
// registration took. Idempotent: subscribing the same connection to the same
// match twice has no additional effect. A subscriber that has been dropped is
// refused: its outbox is closed, so registering it again would make the next
// Publish send on a closed channel.
func (h *Hub) Subscribe(sub *Subscriber, matchID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.dropped {
		return false
	}

	entry := h.bySub[sub.ID]
	if entry == nil {
		entry = &subEntry{sub: sub, matches: make(map[string]struct{})}
		h.bySub[sub.ID] = entry
	}
	if _, ok := entry.matches[matchID]; ok {
		return true
	}
	entry.matches[matchID] = struct{}{}

	if h.matches[matchID] == nil {
		h.matches[matchID] = make(map[string]*Subscriber)
	}
	h.matches[matchID][sub.ID] = sub
	metrics.Subscribers.Inc()
	return true
}

// Unsubscribe removes one subscription. The subscriber's outbox stays open as
// long as it holds other subscriptions or until Drop.
func (h *Hub) Unsubscribe(subID, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := h.bySub[subID]
	if entry == nil {
		return
	}
	if _, ok := entry.matches[matchID]; !ok {
		return
	}
	delete(entry.matches, matchID)
	delete(h.matches[matchID], subID)
	if len(h.matches[matchID]) == 0 {
		delete(h.matches, matchID)
	}
	metrics.Subscribers.Dec()
}

// Drop removes the subscriber from every match and closes its outbox. Called
// on connection loss; safe to call for an unknown or already-dropped id.
func (h *Hub) Drop(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(subID)
}

func (h *Hub) dropLocked(subID string) {
	entry := h.bySub[subID]
	if entry == nil {
		return
	}
	for matchID := range entry.matches {
		delete(h.matches[matchID], subID)
		if len(h.matches[matchID]) == 0 {
			delete(h.matches, matchID)
		}
		metrics.Subscribers.Dec()
	}
	delete(h.bySub, subID)
	entry.sub.dropped = true
	close(entry.sub.Outbox)
}

// Publish delivers d to every subscriber of matchID. A subscriber whose
// outbox is full is treated as disconnected and dropped from all its
// subscriptions; delivery to the others is unaffected. Callers serialize
// Publish per match, which gives each subscriber the deltas in the order
// the store produced them.
func (h *Hub) Publish(matchID string, d types.Delta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []string
	for id, sub := range h.matches[matchID] {
		select {
		case sub.Outbox <- d:
		default:
			// Slow or dead consumer; cut it loose rather than block the rest.
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		h.log.Warn("dropping slow subscriber",
			zap.String("subscriber_id", id),
			zap.String("match_id", matchID))
		h.dropLocked(id)
		metrics.SubscribersDropped.Inc()
	}
	metrics.DeltasPublished.Inc()
}
