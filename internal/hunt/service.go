package hunt

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service implements the public game-state operations over an injected
// Store. Timestamps come from the injected clock, never from inside an
// operation, so a whole transaction observes a single instant.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, logger: logger, now: now}
}

// CreateGame inserts a new game in setup status. The human-readable
// code comes from the game ID counter, so codes stay monotonic even
// after deletions.
func (s *Service) CreateGame(ctx context.Context, name string) (Game, error) {
	var g Game
	err := s.store.Atomic(ctx, func(tx Store) error {
		id, err := tx.NextID(ctx, KindGame)
		if err != nil {
			return fmt.Errorf("allocating game id: %w", err)
		}
		g = Game{
			ID:        id,
			Code:      fmt.Sprintf("GAME%04d", id),
			Name:      name,
			Status:    GameSetup,
			CreatedAt: s.now(),
		}
		return tx.InsertGame(ctx, g)
	})
	if err != nil {
		return Game{}, err
	}
	s.logger.Info("game created", "game_id", g.ID, "code", g.Code, "name", g.Name)
	return g, nil
}

// ResetGame wipes every game, checkpoint, player, membership, and claim
// row, then creates a fresh game, all in one transaction. Supports
// single-active-game deployments where "create" means "start over".
func (s *Service) ResetGame(ctx context.Context, name string) (Game, error) {
	var g Game
	err := s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.Wipe(ctx); err != nil {
			return fmt.Errorf("wiping tables: %w", err)
		}
		id, err := tx.NextID(ctx, KindGame)
		if err != nil {
			return fmt.Errorf("allocating game id: %w", err)
		}
		g = Game{
			ID:        id,
			Code:      fmt.Sprintf("GAME%04d", id),
			Name:      name,
			Status:    GameSetup,
			CreatedAt: s.now(),
		}
		return tx.InsertGame(ctx, g)
	})
	if err != nil {
		return Game{}, err
	}
	s.logger.Info("game created after reset", "game_id", g.ID, "code", g.Code)
	return g, nil
}

// StartGame moves a game from setup to active.
func (s *Service) StartGame(ctx context.Context, gameID int64) (Game, error) {
	var g Game
	err := s.store.Atomic(ctx, func(tx Store) error {
		var err error
		g, err = tx.GameByID(ctx, gameID)
		if err != nil {
			return fmt.Errorf("game %d: %w", gameID, err)
		}
		if g.Status != GameSetup {
			return fmt.Errorf("starting game in status %q: %w", g.Status, ErrInvalidState)
		}
		t := s.now()
		g.Status = GameActive
		g.StartedAt = &t
		return tx.UpdateGame(ctx, g)
	})
	if err != nil {
		return Game{}, err
	}
	s.logger.Info("game started", "game_id", g.ID, "code", g.Code)
	return g, nil
}

// EndGame moves a game from active to ended.
func (s *Service) EndGame(ctx context.Context, gameID int64) (Game, error) {
	var g Game
	err := s.store.Atomic(ctx, func(tx Store) error {
		var err error
		g, err = tx.GameByID(ctx, gameID)
		if err != nil {
			return fmt.Errorf("game %d: %w", gameID, err)
		}
		if g.Status != GameActive {
			return fmt.Errorf("ending game in status %q: %w", g.Status, ErrInvalidState)
		}
		t := s.now()
		g.Status = GameEnded
		g.EndedAt = &t
		return tx.UpdateGame(ctx, g)
	})
	if err != nil {
		return Game{}, err
	}
	s.logger.Info("game ended", "game_id", g.ID, "code", g.Code)
	return g, nil
}

// DeleteGame removes a game together with its checkpoints, memberships,
// and claims. With cascadeOrphans, any player left with zero claims
// anywhere is removed as well.
func (s *Service) DeleteGame(ctx context.Context, gameID int64, cascadeOrphans bool) error {
	err := s.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.GameByID(ctx, gameID); err != nil {
			return fmt.Errorf("game %d: %w", gameID, err)
		}
		if _, err := tx.DeleteClaims(ctx, ClaimFilter{GameID: &gameID}); err != nil {
			return fmt.Errorf("deleting claims: %w", err)
		}
		if err := tx.DeleteMembershipsByGame(ctx, gameID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		checkpoints, err := tx.ListCheckpoints(ctx, gameID)
		if err != nil {
			return fmt.Errorf("listing checkpoints: %w", err)
		}
		for _, cp := range checkpoints {
			if err := tx.DeleteCheckpoint(ctx, cp.ID); err != nil {
				return fmt.Errorf("deleting checkpoint %d: %w", cp.ID, err)
			}
		}
		if err := tx.DeleteGame(ctx, gameID); err != nil {
			return fmt.Errorf("deleting game: %w", err)
		}
		if !cascadeOrphans {
			return nil
		}
		players, err := tx.ListPlayers(ctx)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		for _, p := range players {
			n, err := tx.CountClaimsByPlayer(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("counting claims for player %s: %w", p.ID, err)
			}
			if n > 0 {
				continue
			}
			if err := tx.DeleteMembershipsByPlayer(ctx, p.ID); err != nil {
				return fmt.Errorf("deleting memberships for player %s: %w", p.ID, err)
			}
			if err := tx.DeletePlayer(ctx, p.ID); err != nil {
				return fmt.Errorf("deleting orphan player %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("game deleted", "game_id", gameID, "cascade_orphans", cascadeOrphans)
	return nil
}
