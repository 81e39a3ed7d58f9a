package hunt

import (
	"context"
	"errors"
	"fmt"
)

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	Claim          Claim
	Membership     Membership
	AlreadyClaimed bool
}

// ClaimCheckpoint records that a player visited a checkpoint. Claims
// must follow the per-player cursor exactly: a player at NextRequired=k
// can only claim the checkpoint with order index k. Re-claiming an
// already-claimed checkpoint succeeds without changing any counter, so
// physical re-scans and client retries are harmless.
//
// The claim row and the cursor advance commit in the same transaction;
// there is no observable state where one exists without the other.
func (s *Service) ClaimCheckpoint(ctx context.Context, playerID, gameCode, tagCode, clientToken string) (ClaimResult, error) {
	var res ClaimResult
	err := s.store.Atomic(ctx, func(tx Store) error {
		g, err := tx.GameByCode(ctx, gameCode)
		if err != nil {
			return fmt.Errorf("game %q: %w", gameCode, err)
		}
		if g.Status != GameActive {
			return fmt.Errorf("game %s in status %q: %w", g.Code, g.Status, ErrGameNotActive)
		}

		cp, err := tx.CheckpointByTag(ctx, g.ID, tagCode)
		if err != nil {
			return fmt.Errorf("checkpoint %q in game %s: %w", tagCode, g.Code, err)
		}
		if !cp.IsActive {
			return fmt.Errorf("checkpoint %q: %w", tagCode, ErrCheckpointInactive)
		}

		m, err := tx.Membership(ctx, playerID, g.ID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("player %s in game %s: %w", playerID, g.Code, ErrNotMember)
		}
		if err != nil {
			return fmt.Errorf("membership lookup: %w", err)
		}

		if existing, err := tx.ClaimByKey(ctx, g.ID, playerID, cp.ID); err == nil {
			res = ClaimResult{Claim: existing, Membership: m, AlreadyClaimed: true}
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("claim lookup: %w", err)
		}

		if cp.OrderIndex != m.NextRequired {
			return fmt.Errorf("checkpoint %d must be claimed next, got %d: %w",
				m.NextRequired, cp.OrderIndex, ErrOutOfOrder)
		}

		t := s.now()
		c := Claim{
			GameID:       g.ID,
			PlayerID:     playerID,
			CheckpointID: cp.ID,
			OrderIndex:   cp.OrderIndex,
			ClaimedAt:    t,
			ClientToken:  clientToken,
		}
		if err := tx.InsertClaim(ctx, c); err != nil {
			return fmt.Errorf("inserting claim: %w", err)
		}

		m.CheckpointsScanned++
		m.LastScanAt = &t
		m.NextRequired++
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return fmt.Errorf("advancing cursor: %w", err)
		}

		res = ClaimResult{Claim: c, Membership: m}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	if res.AlreadyClaimed {
		s.logger.Info("checkpoint re-claimed, ignoring",
			"player_id", playerID, "game_code", gameCode, "tag", tagCode)
	} else {
		s.logger.Info("checkpoint claimed",
			"player_id", playerID, "game_code", gameCode, "tag", tagCode,
			"order", res.Claim.OrderIndex, "next_required", res.Membership.NextRequired)
	}
	return res, nil
}

// DeleteProgress removes exactly one claim row. The membership cursor
// is left where it is.
func (s *Service) DeleteProgress(ctx context.Context, gameID int64, playerID string, checkpointID int64) error {
	err := s.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.ClaimByKey(ctx, gameID, playerID, checkpointID); err != nil {
			return fmt.Errorf("claim (%d, %s, %d): %w", gameID, playerID, checkpointID, err)
		}
		return tx.DeleteClaim(ctx, gameID, playerID, checkpointID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("progress row deleted",
		"game_id", gameID, "player_id", playerID, "checkpoint_id", checkpointID)
	return nil
}

// DeletePlayerProgress removes a player's claims, scoped to one game
// when gameID is non-nil and across all games otherwise, together with
// the matching memberships. The player row itself is only removed when
// deletePlayer is set.
func (s *Service) DeletePlayerProgress(ctx context.Context, playerID string, gameID *int64, deletePlayer bool) error {
	err := s.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.PlayerByID(ctx, playerID); err != nil {
			return fmt.Errorf("player %s: %w", playerID, err)
		}
		if _, err := tx.DeleteClaims(ctx, ClaimFilter{PlayerID: &playerID, GameID: gameID}); err != nil {
			return fmt.Errorf("deleting claims: %w", err)
		}
		if gameID != nil {
			err := tx.DeleteMembership(ctx, playerID, *gameID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("deleting membership: %w", err)
			}
		} else if err := tx.DeleteMembershipsByPlayer(ctx, playerID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if deletePlayer {
			return tx.DeletePlayer(ctx, playerID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("player progress deleted",
		"player_id", playerID, "player_removed", deletePlayer)
	return nil
}
