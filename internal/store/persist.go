package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

// MatchRecord is the postgres row mirroring one snapshot. The in-memory
// store stays authoritative; rows exist to survive restarts.
type MatchRecord struct {
	MatchID       string `gorm:"primaryKey"`
	Team1ID       string
	Team1Name     string
	Team1Logo     string
	Team2ID       string
	Team2Name     string
	Team2Logo     string
	DivisionID    string
	DivisionName  string
	ScheduledTime time.Time
	ScoreTeam1    int
	ScoreTeam2    int
	Status        string
	YellowCards   int
	RedCards      int
	Version       int64
	UpdatedAt     time.Time
}

func (MatchRecord) TableName() string { return "match_snapshots" }

type Repository struct {
	db *gorm.DB
}

func OpenRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate match_snapshots: %w", err)
	}
	return &Repository{db: db}, nil
}

// LoadAll returns every persisted snapshot, used to seed the store at boot.
func (r *Repository) LoadAll(ctx context.Context) ([]types.Snapshot, error) {
	var records []MatchRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load match snapshots: %w", err)
	}
	snaps := make([]types.Snapshot, 0, len(records))
	for _, rec := range records {
		snaps = append(snaps, rec.snapshot())
	}
	return snaps, nil
}

// Save upserts one snapshot row.
func (r *Repository) Save(ctx context.Context, snap types.Snapshot) error {
	rec := newRecord(snap)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save match %s: %w", snap.MatchID, err)
	}
	return nil
}

func newRecord(snap types.Snapshot) MatchRecord {
	return MatchRecord{
		MatchID:       snap.MatchID,
		Team1ID:       snap.Team1.ID,
		Team1Name:     snap.Team1.Name,
		Team1Logo:     snap.Team1.Logo,
		Team2ID:       snap.Team2.ID,
		Team2Name:     snap.Team2.Name,
		Team2Logo:     snap.Team2.Logo,
		DivisionID:    snap.Division.ID,
		DivisionName:  snap.Division.Name,
		ScheduledTime: snap.ScheduledTime,
		ScoreTeam1:    snap.ScoreTeam1,
		ScoreTeam2:    snap.ScoreTeam2,
		Status:        string(snap.Status),
		YellowCards:   snap.Cards.Yellow,
		RedCards:      snap.Cards.Red,
		Version:       snap.Version,
	}
}

func (rec MatchRecord) snapshot() types.Snapshot {
	return types.Snapshot{
		MatchID:       rec.MatchID,
		Team1:         types.TeamInfo{ID: rec.Team1ID, Name: rec.Team1Name, Logo: rec.Team1Logo},
		Team2:         types.TeamInfo{ID: rec.Team2ID, Name: rec.Team2Name, Logo: rec.Team2Logo},
		Division:      types.DivisionInfo{ID: rec.DivisionID, Name: rec.DivisionName},
		ScheduledTime: rec.ScheduledTime,
		ScoreTeam1:    rec.ScoreTeam1,
		ScoreTeam2:    rec.ScoreTeam2,
		Status:        types.Status(rec.Status),
		Cards:         types.CardCounts{Yellow: rec.YellowCards, Red: rec.RedCards},
		Version:       rec.Version,
	}
}
