package hunt

import "context"

// Kind identifies an entity family for monotonic ID generation.
type Kind string

const (
	KindGame       Kind = "game"
	KindCheckpoint Kind = "checkpoint"
)

// ClaimFilter selects claim rows. Nil fields match everything.
type ClaimFilter struct {
	GameID       *int64
	PlayerID     *string
	CheckpointID *int64
}

// Store is the entity-table contract the engine runs against. Inserts
// fail with ErrDuplicate when a row with the same primary or unique key
// exists; updates fail with ErrNotFound when the row is absent; deletes
// of single rows report ErrNotFound, bulk deletes are no-op safe.
//
// Atomic runs fn against a transactional view of the store: either
// every write in fn commits, or none does. Every Service operation is
// one Atomic call, so read-then-write sequences (duplicate checks,
// cursor advancement) never race with concurrent operations.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Store) error) error

	// NextID returns the next value of a persisted monotonic counter
	// for the given kind. Counters survive deletions, so IDs are never
	// reused (row counts are not a safe ID source).
	NextID(ctx context.Context, kind Kind) (int64, error)

	InsertGame(ctx context.Context, g Game) error
	GameByID(ctx context.Context, id int64) (Game, error)
	GameByCode(ctx context.Context, code string) (Game, error)
	UpdateGame(ctx context.Context, g Game) error
	DeleteGame(ctx context.Context, id int64) error
	ListGames(ctx context.Context) ([]Game, error)

	InsertCheckpoint(ctx context.Context, c Checkpoint) error
	CheckpointByID(ctx context.Context, id int64) (Checkpoint, error)
	CheckpointByTag(ctx context.Context, gameID int64, tagCode string) (Checkpoint, error)
	CheckpointByTagGlobal(ctx context.Context, tagCode string) (Checkpoint, error)
	UpdateCheckpoint(ctx context.Context, c Checkpoint) error
	DeleteCheckpoint(ctx context.Context, id int64) error
	ListCheckpoints(ctx context.Context, gameID int64) ([]Checkpoint, error)

	InsertPlayer(ctx context.Context, p Player) error
	PlayerByID(ctx context.Context, id string) (Player, error)
	UpdatePlayer(ctx context.Context, p Player) error
	DeletePlayer(ctx context.Context, id string) error
	ListPlayers(ctx context.Context) ([]Player, error)

	InsertMembership(ctx context.Context, m Membership) error
	Membership(ctx context.Context, playerID string, gameID int64) (Membership, error)
	UpdateMembership(ctx context.Context, m Membership) error
	DeleteMembership(ctx context.Context, playerID string, gameID int64) error
	DeleteMembershipsByGame(ctx context.Context, gameID int64) error
	DeleteMembershipsByPlayer(ctx context.Context, playerID string) error
	ListMembershipsByGame(ctx context.Context, gameID int64) ([]Membership, error)

	InsertClaim(ctx context.Context, c Claim) error
	ClaimByKey(ctx context.Context, gameID int64, playerID string, checkpointID int64) (Claim, error)
	DeleteClaim(ctx context.Context, gameID int64, playerID string, checkpointID int64) error
	ListClaims(ctx context.Context, f ClaimFilter) ([]Claim, error)
	DeleteClaims(ctx context.Context, f ClaimFilter) (int, error)
	CountClaimsByPlayer(ctx context.Context, playerID string) (int, error)

	// Wipe removes every row from every table, counters excluded.
	Wipe(ctx context.Context) error
}
