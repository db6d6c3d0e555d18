package types

import "errors"

// ErrMalformedDelta marks a delta whose payload does not match its kind.
// Such a delta must never be partially applied.
var ErrMalformedDelta = errors.New("delta payload does not match kind")

type DeltaKind string

const (
	KindScoreChanged  DeltaKind = "ScoreChanged"
	KindStatusChanged DeltaKind = "StatusChanged"
	KindCardsChanged  DeltaKind = "CardsChanged"
)

// ScoreChange carries both scores, since either may have changed.
type ScoreChange struct {
	ScoreTeam1 int `json:"scoreTeam1"`
	ScoreTeam2 int `json:"scoreTeam2"`
}

// Delta describes one mutation to a match snapshot. Exactly one payload
// field is set, determined by Kind; everything the kind cannot change is
// absent so a client never nulls out fields it did not receive.
type Delta struct {
	MatchID string    `json:"matchId"`
	Version int64     `json:"version"`
	Kind    DeltaKind `json:"kind"`

	Score  *ScoreChange `json:"score,omitempty"`
	Status *Status      `json:"status,omitempty"`
	Cards  *CardCounts  `json:"cards,omitempty"`
}

// Validate checks that the payload present is exactly the one the kind
// requires.
func (d Delta) Validate() error {
	switch d.Kind {
	case KindScoreChanged:
		if d.Score == nil || d.Status != nil || d.Cards != nil {
			return ErrMalformedDelta
		}
	case KindStatusChanged:
		if d.Status == nil || d.Score != nil || d.Cards != nil {
			return ErrMalformedDelta
		}
	case KindCardsChanged:
		if d.Cards == nil || d.Score != nil || d.Status != nil {
			return ErrMalformedDelta
		}
	default:
		return ErrMalformedDelta
	}
	return nil
}

// Merge applies the delta's field group onto snap by overwrite, leaving every
// other field untouched, and advances snap's version. Callers are expected to
// have ordered deltas by version already; Merge does not check contiguity.
func (d Delta) Merge(snap *Snapshot) error {
	if err := d.Validate(); err != nil {
		return err
	}
	switch d.Kind {
	case KindScoreChanged:
		snap.ScoreTeam1 = d.Score.ScoreTeam1
		snap.ScoreTeam2 = d.Score.ScoreTeam2
	case KindStatusChanged:
		snap.Status = *d.Status
	case KindCardsChanged:
		snap.Cards = *d.Cards
	}
	snap.Version = d.Version
	return nil
}
