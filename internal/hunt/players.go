package hunt

import (
	"context"
	"errors"
	"fmt"
)

// UpsertPlayer registers a player or, if the ID is already known,
// updates the display name and team. Registration never conflicts with
// itself, so clients can safely retry.
func (s *Service) UpsertPlayer(ctx context.Context, playerID, displayName, team string) (Player, error) {
	if playerID == "" {
		return Player{}, fmt.Errorf("player id is required: %w", ErrInvalidArgument)
	}
	var p Player
	err := s.store.Atomic(ctx, func(tx Store) error {
		existing, err := tx.PlayerByID(ctx, playerID)
		if errors.Is(err, ErrNotFound) {
			p = Player{
				ID:          playerID,
				DisplayName: displayName,
				Team:        team,
				CreatedAt:   s.now(),
			}
			return tx.InsertPlayer(ctx, p)
		}
		if err != nil {
			return fmt.Errorf("player %s: %w", playerID, err)
		}
		existing.DisplayName = displayName
		existing.Team = team
		p = existing
		return tx.UpdatePlayer(ctx, p)
	})
	if err != nil {
		return Player{}, err
	}
	s.logger.Info("player upserted", "player_id", p.ID, "name", p.DisplayName)
	return p, nil
}

// JoinGame creates the player's membership in the game resolved by
// gameCode, with the progress cursor at 1. Joining twice is a no-op
// that returns the existing membership. Ended games cannot be joined.
func (s *Service) JoinGame(ctx context.Context, playerID, gameCode string) (Membership, error) {
	var m Membership
	err := s.store.Atomic(ctx, func(tx Store) error {
		g, err := tx.GameByCode(ctx, gameCode)
		if err != nil {
			return fmt.Errorf("game %q: %w", gameCode, err)
		}
		if g.Status == GameEnded {
			return fmt.Errorf("joining game %s: %w", g.Code, ErrGameNotActive)
		}
		if _, err := tx.PlayerByID(ctx, playerID); err != nil {
			return fmt.Errorf("player %s: %w", playerID, err)
		}
		if existing, err := tx.Membership(ctx, playerID, g.ID); err == nil {
			m = existing
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("membership lookup: %w", err)
		}
		m = Membership{
			PlayerID:     playerID,
			GameID:       g.ID,
			JoinedAt:     s.now(),
			NextRequired: 1,
		}
		return tx.InsertMembership(ctx, m)
	})
	if err != nil {
		return Membership{}, err
	}
	s.logger.Info("player joined game", "player_id", playerID, "game_id", m.GameID)
	return m, nil
}
