package ws

import "github.com/DoyleJ11/matchday-backend/pkg/types"

// Client -> server actions.
const (
	ActionSubscribe      = "Subscribe"
	ActionUnsubscribe    = "Unsubscribe"
	ActionIncrementScore = "IncrementScore"
	ActionSetStatus      = "SetStatus"
	ActionIncrementCard  = "IncrementCard"
)

// Server -> client message types.
const (
	MsgDelta      = "Delta"
	MsgSnapshot   = "Snapshot"
	MsgSubscribed = "Subscribed"
	MsgError      = "Error"
)

type ClientMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Team    string `json:"team,omitempty"`
	Status  string `json:"status,omitempty"`
	Color   string `json:"color,omitempty"`
}

type ServerMessage struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"matchId,omitempty"`
	Delta    *types.Delta    `json:"delta,omitempty"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
	Error    string          `json:"error,omitempty"`
}
