// Package types holds the wire-level match state shared by the server and
// its clients: the full snapshot and the typed deltas broadcast on every
// accepted mutation.
package types

import "time"

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Side names one of the two teams in a match.
type Side string

const (
	SideTeam1 Side = "team1"
	SideTeam2 Side = "team2"
)

type CardColor string

const (
	CardYellow CardColor = "yellow"
	CardRed    CardColor = "red"
)

type TeamInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type DivisionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CardCounts struct {
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

// Snapshot is the authoritative state of one match. Team, division and
// schedule metadata are immutable for the life of the match; scores, status,
// cards and version only change through accepted mutations.
type Snapshot struct {
	MatchID       string       `json:"matchId"`
	Team1         TeamInfo     `json:"team1"`
	Team2         TeamInfo     `json:"team2"`
	Division      DivisionInfo `json:"division"`
	ScheduledTime time.Time    `json:"scheduledTime"`
	ScoreTeam1    int          `json:"scoreTeam1"`
	ScoreTeam2    int          `json:"scoreTeam2"`
	Status        Status       `json:"status"`
	Cards         CardCounts   `json:"cards"`

	// Version increments by exactly one per accepted mutation. Clients use
	// it to detect missed deltas.
	Version int64 `json:"version"`
}
