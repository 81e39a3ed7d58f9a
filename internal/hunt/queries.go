package hunt

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PlayerState is a player's membership plus every claim they hold in
// one game.
type PlayerState struct {
	Membership Membership
	Claims     []Claim
}

// LeaderboardEntry is one row of a game's standings.
type LeaderboardEntry struct {
	PlayerID    string
	DisplayName string
	Team        string
	Scanned     int
	LastScanAt  *string
}

// Game resolves a game by numeric ID or by its human-readable code.
func (s *Service) Game(ctx context.Context, idOrCode string) (Game, error) {
	if strings.HasPrefix(idOrCode, "GAME") {
		return s.store.GameByCode(ctx, idOrCode)
	}
	id, err := strconv.ParseInt(idOrCode, 10, 64)
	if err != nil {
		return Game{}, fmt.Errorf("game %q: %w", idOrCode, ErrNotFound)
	}
	return s.store.GameByID(ctx, id)
}

func (s *Service) ListGames(ctx context.Context) ([]Game, error) {
	return s.store.ListGames(ctx)
}

func (s *Service) Checkpoint(ctx context.Context, checkpointID int64) (Checkpoint, error) {
	return s.store.CheckpointByID(ctx, checkpointID)
}

func (s *Service) ListCheckpoints(ctx context.Context, gameID int64) ([]Checkpoint, error) {
	if _, err := s.store.GameByID(ctx, gameID); err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	return s.store.ListCheckpoints(ctx, gameID)
}

// PlayerGameState returns the membership cursor and claims of one
// player in one game.
func (s *Service) PlayerGameState(ctx context.Context, playerID string, gameID int64) (PlayerState, error) {
	var state PlayerState
	err := s.store.Atomic(ctx, func(tx Store) error {
		m, err := tx.Membership(ctx, playerID, gameID)
		if err != nil {
			return fmt.Errorf("membership (%s, %d): %w", playerID, gameID, err)
		}
		claims, err := tx.ListClaims(ctx, ClaimFilter{GameID: &gameID, PlayerID: &playerID})
		if err != nil {
			return fmt.Errorf("listing claims: %w", err)
		}
		state = PlayerState{Membership: m, Claims: claims}
		return nil
	})
	return state, err
}

// Leaderboard ranks a game's members by checkpoints scanned, earliest
// last scan first on ties.
func (s *Service) Leaderboard(ctx context.Context, gameID int64) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := s.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.GameByID(ctx, gameID); err != nil {
			return fmt.Errorf("game %d: %w", gameID, err)
		}
		members, err := tx.ListMembershipsByGame(ctx, gameID)
		if err != nil {
			return fmt.Errorf("listing memberships: %w", err)
		}
		for _, m := range members {
			p, err := tx.PlayerByID(ctx, m.PlayerID)
			if err != nil {
				return fmt.Errorf("player %s: %w", m.PlayerID, err)
			}
			e := LeaderboardEntry{
				PlayerID:    p.ID,
				DisplayName: p.DisplayName,
				Team:        p.Team,
				Scanned:     m.CheckpointsScanned,
			}
			if m.LastScanAt != nil {
				t := m.LastScanAt.Format("2006-01-02T15:04:05.000Z")
				e.LastScanAt = &t
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if a.Scanned != b.Scanned {
			return b.Scanned - a.Scanned
		}
		switch {
		case a.LastScanAt == nil && b.LastScanAt != nil:
			return 1
		case a.LastScanAt != nil && b.LastScanAt == nil:
			return -1
		case a.LastScanAt != nil && b.LastScanAt != nil && *a.LastScanAt != *b.LastScanAt:
			return strings.Compare(*a.LastScanAt, *b.LastScanAt)
		}
		return strings.Compare(a.PlayerID, b.PlayerID)
	})
	return entries, nil
}
