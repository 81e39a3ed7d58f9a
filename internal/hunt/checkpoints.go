package hunt

import (
	"context"
	"errors"
	"fmt"
)

// RegisterCheckpoint creates an inactive checkpoint in the game
// resolved by gameCode. Both the tag code and the order index must be
// unused within the game. Order indices do not have to be contiguous,
// but claims advance one index at a time, so a gap leaves later
// checkpoints unreachable.
func (s *Service) RegisterCheckpoint(ctx context.Context, gameCode, tagCode, locationName string, orderIndex int) (Checkpoint, error) {
	if orderIndex < 1 {
		return Checkpoint{}, fmt.Errorf("order index must be >= 1: %w", ErrInvalidArgument)
	}
	var cp Checkpoint
	err := s.store.Atomic(ctx, func(tx Store) error {
		g, err := tx.GameByCode(ctx, gameCode)
		if err != nil {
			return fmt.Errorf("game %q: %w", gameCode, err)
		}
		existing, err := tx.ListCheckpoints(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("listing checkpoints: %w", err)
		}
		for _, c := range existing {
			if c.TagCode == tagCode {
				return fmt.Errorf("tag %q in game %s: %w", tagCode, g.Code, ErrDuplicate)
			}
			if c.OrderIndex == orderIndex {
				return fmt.Errorf("order index %d in game %s: %w", orderIndex, g.Code, ErrDuplicate)
			}
		}
		id, err := tx.NextID(ctx, KindCheckpoint)
		if err != nil {
			return fmt.Errorf("allocating checkpoint id: %w", err)
		}
		cp = Checkpoint{
			ID:           id,
			GameID:       g.ID,
			TagCode:      tagCode,
			OrderIndex:   orderIndex,
			LocationName: locationName,
			IsActive:     false,
			CreatedAt:    s.now(),
		}
		return tx.InsertCheckpoint(ctx, cp)
	})
	if err != nil {
		return Checkpoint{}, err
	}
	s.logger.Info("checkpoint registered",
		"checkpoint_id", cp.ID, "game_id", cp.GameID, "tag", cp.TagCode, "order", cp.OrderIndex)
	return cp, nil
}

// ActivateCheckpoint is an upsert-by-replace: if a checkpoint with this
// tag code exists (in any game), every attribute is replaced by the
// values supplied here and the checkpoint becomes active; otherwise a
// fresh active checkpoint is inserted. Fields not supplied are lost,
// so callers must resupply everything they want preserved. The
// checkpoint ID survives a replace and existing claims keep pointing
// at it.
func (s *Service) ActivateCheckpoint(ctx context.Context, gameID int64, tagCode string, orderIndex int, locationName, clue string, geo *Geo, activatedBy string) (Checkpoint, error) {
	if orderIndex < 1 {
		return Checkpoint{}, fmt.Errorf("order index must be >= 1: %w", ErrInvalidArgument)
	}
	var cp Checkpoint
	err := s.store.Atomic(ctx, func(tx Store) error {
		g, err := tx.GameByID(ctx, gameID)
		if err != nil {
			return fmt.Errorf("game %d: %w", gameID, err)
		}

		id := int64(0)
		if existing, err := tx.CheckpointByTagGlobal(ctx, tagCode); err == nil {
			id = existing.ID
			if err := tx.DeleteCheckpoint(ctx, existing.ID); err != nil {
				return fmt.Errorf("replacing checkpoint %d: %w", existing.ID, err)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("looking up tag %q: %w", tagCode, err)
		}

		others, err := tx.ListCheckpoints(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("listing checkpoints: %w", err)
		}
		for _, c := range others {
			if c.OrderIndex == orderIndex {
				return fmt.Errorf("order index %d in game %s: %w", orderIndex, g.Code, ErrDuplicate)
			}
		}

		if id == 0 {
			if id, err = tx.NextID(ctx, KindCheckpoint); err != nil {
				return fmt.Errorf("allocating checkpoint id: %w", err)
			}
		}
		t := s.now()
		cp = Checkpoint{
			ID:           id,
			GameID:       g.ID,
			TagCode:      tagCode,
			OrderIndex:   orderIndex,
			LocationName: locationName,
			Clue:         clue,
			IsActive:     true,
			ActivatedAt:  &t,
			CreatedAt:    t,
		}
		if activatedBy != "" {
			cp.ActivatedBy = &activatedBy
		}
		if geo != nil {
			cp.Lat = &geo.Lat
			cp.Lon = &geo.Lon
			cp.AccuracyM = &geo.AccuracyM
		}
		return tx.InsertCheckpoint(ctx, cp)
	})
	if err != nil {
		return Checkpoint{}, err
	}
	s.logger.Info("checkpoint activated",
		"checkpoint_id", cp.ID, "game_id", cp.GameID, "tag", cp.TagCode, "order", cp.OrderIndex)
	return cp, nil
}

// SetCheckpointActive flips the active flag without touching any other
// attribute.
func (s *Service) SetCheckpointActive(ctx context.Context, checkpointID int64, active bool) (Checkpoint, error) {
	var cp Checkpoint
	err := s.store.Atomic(ctx, func(tx Store) error {
		var err error
		cp, err = tx.CheckpointByID(ctx, checkpointID)
		if err != nil {
			return fmt.Errorf("checkpoint %d: %w", checkpointID, err)
		}
		cp.IsActive = active
		return tx.UpdateCheckpoint(ctx, cp)
	})
	if err != nil {
		return Checkpoint{}, err
	}
	s.logger.Info("checkpoint active flag set", "checkpoint_id", cp.ID, "active", active)
	return cp, nil
}

// DeleteCheckpoint removes a checkpoint and every claim referencing it,
// leaving claims of other checkpoints untouched. Progress cursors are
// not rewound.
func (s *Service) DeleteCheckpoint(ctx context.Context, checkpointID int64) error {
	err := s.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.CheckpointByID(ctx, checkpointID); err != nil {
			return fmt.Errorf("checkpoint %d: %w", checkpointID, err)
		}
		if _, err := tx.DeleteClaims(ctx, ClaimFilter{CheckpointID: &checkpointID}); err != nil {
			return fmt.Errorf("deleting claims: %w", err)
		}
		return tx.DeleteCheckpoint(ctx, checkpointID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("checkpoint deleted", "checkpoint_id", checkpointID)
	return nil
}
