// Package hunt implements the game-state engine for a location-based
// scavenger hunt: games move through a setup/active/ended lifecycle,
// organizers register ordered checkpoints, and players claim checkpoints
// in strict sequence. All mutations go through a Store and run inside a
// single transaction per operation.
package hunt

import "time"

// GameStatus is the lifecycle state of a game. Transitions are
// monotonic: setup -> active -> ended, never backward.
type GameStatus string

const (
	GameSetup  GameStatus = "setup"
	GameActive GameStatus = "active"
	GameEnded  GameStatus = "ended"
)

// Game is a single scavenger-hunt event.
type Game struct {
	ID        int64
	Code      string // human-readable, e.g. GAME0001
	Name      string
	Status    GameStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
}

// Checkpoint is a location-bound, ordinally numbered objective.
// (GameID, TagCode) and (GameID, OrderIndex) are both unique.
type Checkpoint struct {
	ID           int64
	GameID       int64
	TagCode      string
	OrderIndex   int
	LocationName string
	Clue         string
	IsActive     bool
	Lat          *float64
	Lon          *float64
	AccuracyM    *int
	ActivatedBy  *string
	ActivatedAt  *time.Time
	CreatedAt    time.Time
}

// Player is a registered participant. The ID is supplied by the caller
// (identity resolution happens outside this package).
type Player struct {
	ID          string
	DisplayName string
	Team        string
	CreatedAt   time.Time
}

// Membership is the per-player-per-game progress cursor. NextRequired
// and CheckpointsScanned only ever increase.
type Membership struct {
	PlayerID           string
	GameID             int64
	JoinedAt           time.Time
	CheckpointsScanned int
	LastScanAt         *time.Time
	NextRequired       int
}

// Claim records that a player claimed a checkpoint. Immutable once
// written, except for cascade deletion.
type Claim struct {
	GameID       int64
	PlayerID     string
	CheckpointID int64
	OrderIndex   int
	ClaimedAt    time.Time
	ClientToken  string
}

// Geo is an optional checkpoint location supplied at activation time.
type Geo struct {
	Lat       float64
	Lon       float64
	AccuracyM int
}
