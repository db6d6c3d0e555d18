// Package match is the pure mutation core: applying one operation to a
// snapshot and encoding the matching wire delta. No I/O, no locking; the
// store serializes calls per match.
package match

import (
	"errors"

	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

var ErrUnsupportedOp = errors.New("unsupported operation")
var ErrUnknownSide = errors.New("unknown team side")
var ErrUnknownColor = errors.New("unknown card color")
var ErrUnknownStatus = errors.New("unknown match status")

type OpType string

const (
	OpIncrementScore OpType = "IncrementScore"
	OpSetStatus      OpType = "SetStatus"
	OpIncrementCard  OpType = "IncrementCard"
)

// Op is a tagged mutation request. Side is set for IncrementScore, Status
// for SetStatus, Color for IncrementCard.
type Op struct {
	Type   OpType
	Side   types.Side
	Status types.Status
	Color  types.CardColor
}

// Apply runs one operation against the current snapshot and returns the new
// snapshot plus the delta describing the change. On error the input snapshot
// is returned unchanged and no delta is produced. Scores and cards only ever
// increment; there is no decrement operation.
func Apply(s types.Snapshot, op Op) (types.Snapshot, types.Delta, error) {
	next := s

	switch op.Type {
	case OpIncrementScore:
		switch op.Side {
		case types.SideTeam1:
			next.ScoreTeam1++
		case types.SideTeam2:
			next.ScoreTeam2++
		default:
			return s, types.Delta{}, ErrUnknownSide
		}

	case OpSetStatus:
		switch op.Status {
		case types.StatusNotStarted, types.StatusInProgress, types.StatusFinished:
			// Any target status is accepted, including moving a finished
			// match back in progress. Agents use this for manual corrections.
			next.Status = op.Status
		default:
			return s, types.Delta{}, ErrUnknownStatus
		}

	case OpIncrementCard:
		switch op.Color {
		case types.CardYellow:
			next.Cards.Yellow++
		case types.CardRed:
			next.Cards.Red++
		default:
			return s, types.Delta{}, ErrUnknownColor
		}

	default:
		return s, types.Delta{}, ErrUnsupportedOp
	}

	next.Version = s.Version + 1
	return next, EncodeDelta(s, op, next), nil
}

// EncodeDelta builds the minimal wire message for one accepted mutation:
// only the field group the operation can change, never a full snapshot.
// Deterministic and side-effect free.
func EncodeDelta(prior types.Snapshot, op Op, next types.Snapshot) types.Delta {
	d := types.Delta{MatchID: next.MatchID, Version: next.Version}

	switch op.Type {
	case OpIncrementScore:
		d.Kind = types.KindScoreChanged
		d.Score = &types.ScoreChange{ScoreTeam1: next.ScoreTeam1, ScoreTeam2: next.ScoreTeam2}
	case OpSetStatus:
		d.Kind = types.KindStatusChanged
		status := next.Status
		d.Status = &status
	case OpIncrementCard:
		d.Kind = types.KindCardsChanged
		cards := next.Cards
		d.Cards = &cards
	}
	return d
}
