package hunt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tagquest/api/internal/database"
	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/migrations"
)

func newSQLStore(t *testing.T) *hunt.SQLStore {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return hunt.NewSQLStore(db)
}

func TestSQLStoreGameRoundTrip(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	started := time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC)
	g := hunt.Game{
		ID:        1,
		Code:      "GAME0001",
		Name:      "Downtown",
		Status:    hunt.GameSetup,
		CreatedAt: started,
	}
	if err := store.InsertGame(ctx, g); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	byCode, err := store.GameByCode(ctx, "GAME0001")
	if err != nil {
		t.Fatalf("by code: %v", err)
	}
	if byCode.ID != g.ID || byCode.Name != "Downtown" || !byCode.CreatedAt.Equal(started) {
		t.Errorf("by code = %+v", byCode)
	}
	if byCode.StartedAt != nil {
		t.Errorf("started_at = %v, want nil", byCode.StartedAt)
	}

	g.Status = hunt.GameActive
	g.StartedAt = &started
	if err := store.UpdateGame(ctx, g); err != nil {
		t.Fatalf("updating: %v", err)
	}
	byID, err := store.GameByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Status != hunt.GameActive || byID.StartedAt == nil || !byID.StartedAt.Equal(started) {
		t.Errorf("after update = %+v", byID)
	}

	if err := store.InsertGame(ctx, hunt.Game{ID: 2, Code: "GAME0001", Name: "Dup"}); !errors.Is(err, hunt.ErrDuplicate) {
		t.Errorf("duplicate code: err = %v, want ErrDuplicate", err)
	}
	if _, err := store.GameByCode(ctx, "GAME9999"); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("missing code: err = %v, want ErrNotFound", err)
	}
}

func TestSQLStoreCheckpointConstraints(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	g := hunt.Game{ID: 1, Code: "GAME0001", Name: "X", Status: hunt.GameSetup}
	if err := store.InsertGame(ctx, g); err != nil {
		t.Fatalf("inserting game: %v", err)
	}

	cp := hunt.Checkpoint{ID: 1, GameID: g.ID, TagCode: "cp1", OrderIndex: 1, LocationName: "Fountain"}
	if err := store.InsertCheckpoint(ctx, cp); err != nil {
		t.Fatalf("inserting checkpoint: %v", err)
	}

	dupTag := hunt.Checkpoint{ID: 2, GameID: g.ID, TagCode: "cp1", OrderIndex: 2}
	if err := store.InsertCheckpoint(ctx, dupTag); !errors.Is(err, hunt.ErrDuplicate) {
		t.Errorf("duplicate tag: err = %v, want ErrDuplicate", err)
	}
	dupOrder := hunt.Checkpoint{ID: 2, GameID: g.ID, TagCode: "cp2", OrderIndex: 1}
	if err := store.InsertCheckpoint(ctx, dupOrder); !errors.Is(err, hunt.ErrDuplicate) {
		t.Errorf("duplicate order: err = %v, want ErrDuplicate", err)
	}

	byTag, err := store.CheckpointByTag(ctx, g.ID, "cp1")
	if err != nil {
		t.Fatalf("by tag: %v", err)
	}
	if byTag.ID != cp.ID || byTag.LocationName != "Fountain" {
		t.Errorf("by tag = %+v", byTag)
	}

	lat, lon, acc := -12.0464, -77.03, 15
	by := "organizer-1"
	at := time.Date(2026, 6, 13, 11, 0, 0, 0, time.UTC)
	cp.Lat, cp.Lon, cp.AccuracyM = &lat, &lon, &acc
	cp.ActivatedBy, cp.ActivatedAt = &by, &at
	cp.IsActive = true
	if err := store.UpdateCheckpoint(ctx, cp); err != nil {
		t.Fatalf("updating: %v", err)
	}
	got, err := store.CheckpointByID(ctx, cp.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if got.Lat == nil || *got.Lat != lat || got.AccuracyM == nil || *got.AccuracyM != acc {
		t.Errorf("geo round trip = %+v", got)
	}
	if !got.IsActive || got.ActivatedAt == nil || !got.ActivatedAt.Equal(at) {
		t.Errorf("activation round trip = %+v", got)
	}
}

func TestSQLStoreNextID(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.NextID(ctx, hunt.KindGame)
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		if got != want {
			t.Errorf("game counter = %d, want %d", got, want)
		}
	}

	// Counters are independent per kind.
	got, err := store.NextID(ctx, hunt.KindCheckpoint)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if got != 1 {
		t.Errorf("checkpoint counter = %d, want 1", got)
	}
}

func TestSQLStoreAtomicRollback(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	g := hunt.Game{ID: 1, Code: "GAME0001", Name: "X", Status: hunt.GameSetup}
	if err := store.InsertGame(ctx, g); err != nil {
		t.Fatalf("inserting game: %v", err)
	}

	err := store.Atomic(ctx, func(tx hunt.Store) error {
		if err := tx.DeleteGame(ctx, g.ID); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if _, err := store.GameByID(ctx, g.ID); err != nil {
		t.Errorf("game gone after rollback: %v", err)
	}
}

// The full engine running on SQLite instead of the in-memory store.
func TestServiceOnSQLStore(t *testing.T) {
	store := newSQLStore(t)
	svc := hunt.NewService(store, nil, nil)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, "City Walk")
	if err != nil {
		t.Fatalf("creating game: %v", err)
	}
	for i, tag := range []string{"cp1", "cp2"} {
		if _, err := svc.ActivateCheckpoint(ctx, g.ID, tag, i+1, "Stop", "", nil, ""); err != nil {
			t.Fatalf("activating %s: %v", tag, err)
		}
	}
	if _, err := svc.StartGame(ctx, g.ID); err != nil {
		t.Fatalf("starting: %v", err)
	}
	if _, err := svc.UpsertPlayer(ctx, "p1", "Maria", ""); err != nil {
		t.Fatalf("registering player: %v", err)
	}
	if _, err := svc.JoinGame(ctx, "p1", g.Code); err != nil {
		t.Fatalf("joining: %v", err)
	}

	if _, err := svc.ClaimCheckpoint(ctx, "p1", g.Code, "cp2", ""); !errors.Is(err, hunt.ErrOutOfOrder) {
		t.Fatalf("out of order: err = %v", err)
	}
	res, err := svc.ClaimCheckpoint(ctx, "p1", g.Code, "cp1", "tok")
	if err != nil {
		t.Fatalf("claim cp1: %v", err)
	}
	if res.Membership.NextRequired != 2 {
		t.Errorf("next = %d, want 2", res.Membership.NextRequired)
	}
	res, err = svc.ClaimCheckpoint(ctx, "p1", g.Code, "cp1", "tok")
	if err != nil || !res.AlreadyClaimed {
		t.Fatalf("re-claim: err = %v, already = %v", err, res.AlreadyClaimed)
	}

	entries, err := svc.Leaderboard(ctx, g.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Scanned != 1 {
		t.Errorf("leaderboard = %+v", entries)
	}

	if err := svc.DeleteGame(ctx, g.ID, true); err != nil {
		t.Fatalf("deleting game: %v", err)
	}
	if _, err := svc.ListGames(ctx); err != nil {
		t.Fatalf("listing after delete: %v", err)
	}
}
