package hunt

import "errors"

// Sentinel errors returned by Store and Service operations. Callers
// match them with errors.Is; the HTTP layer maps them to statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOutOfOrder         = errors.New("checkpoint claimed out of order")
	ErrNotMember          = errors.New("player has not joined this game")
	ErrGameNotActive      = errors.New("game is not active")
	ErrCheckpointInactive = errors.New("checkpoint is not active")
)
