package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tagquest/api/internal/database"
	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

func newTestRouter(t *testing.T, organizerTokenHash string) chi.Router {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := hunt.NewService(hunt.NewMemStore(), slog.New(slog.DiscardHandler), nil)
	cache := leaderboard.New(nil)

	r := chi.NewRouter()
	addRoutes(r, slog.New(slog.DiscardHandler), svc, cache, db, nil, organizerTokenHash)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestGameFlow(t *testing.T) {
	r := newTestRouter(t, "")

	rec := doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{Name: "Downtown Hunt"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body)
	}
	game := decode[GameResponse](t, rec)
	if game.Code != "GAME0001" || game.Status != "setup" {
		t.Fatalf("created game = %+v", game)
	}

	// Two checkpoints, activated on registration.
	for i, tag := range []string{"cp-a", "cp-b"} {
		rec = doJSON(t, r, http.MethodPut, "/api/checkpoints/"+tag+"/activate", ActivateCheckpointRequest{
			GameID:       game.ID,
			OrderIndex:   i + 1,
			LocationName: "Stop",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("activate %s: status = %d, body = %s", tag, rec.Code, rec.Body)
		}
	}

	rec = doJSON(t, r, http.MethodPost, "/api/games/GAME0001/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decode[GameResponse](t, rec); got.Status != "active" {
		t.Fatalf("after start: status = %q", got.Status)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/players", UpsertPlayerRequest{PlayerID: "dev-1", DisplayName: "Maria"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert player: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/join", JoinGameRequest{PlayerID: "dev-1", GameCode: "GAME0001"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status = %d, body = %s", rec.Code, rec.Body)
	}
	if m := decode[MembershipResponse](t, rec); m.NextRequired != 1 {
		t.Fatalf("membership = %+v", m)
	}

	// Out of order.
	rec = doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-1", GameCode: "GAME0001", TagCode: "cp-b",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-order claim: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-1", GameCode: "GAME0001", TagCode: "cp-a",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body = %s", rec.Code, rec.Body)
	}
	claim := decode[ClaimResponse](t, rec)
	if claim.Status != "claimed" || claim.NextRequired != 2 {
		t.Fatalf("claim = %+v", claim)
	}

	// Idempotent re-scan.
	rec = doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-1", GameCode: "GAME0001", TagCode: "cp-a",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("re-claim: status = %d, body = %s", rec.Code, rec.Body)
	}
	if claim = decode[ClaimResponse](t, rec); claim.Status != "already_claimed" || claim.CheckpointsScanned != 1 {
		t.Fatalf("re-claim = %+v", claim)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/games/GAME0001/leaderboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: status = %d, body = %s", rec.Code, rec.Body)
	}
	lb := decode[LeaderboardResponse](t, rec)
	if len(lb.Entries) != 1 || lb.Entries[0].Scanned != 1 || lb.Entries[0].DisplayName != "Maria" {
		t.Fatalf("leaderboard = %+v", lb)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/games/GAME0001/players/dev-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("player state: status = %d, body = %s", rec.Code, rec.Body)
	}
	state := decode[PlayerStateResponse](t, rec)
	if state.Membership.NextRequired != 2 || len(state.Claims) != 1 {
		t.Fatalf("player state = %+v", state)
	}
}

// Standings must always cover every joined member. A member who has
// not scanned yet still appears with a zero count, including right
// after another player's claim has invalidated the cached copy.
func TestLeaderboardIncludesNonScanners(t *testing.T) {
	r := newTestRouter(t, "")

	doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{Name: "X"})
	doJSON(t, r, http.MethodPut, "/api/checkpoints/cp-a/activate", ActivateCheckpointRequest{
		GameID: 1, OrderIndex: 1,
	})
	doJSON(t, r, http.MethodPost, "/api/games/GAME0001/start", nil)

	for _, id := range []string{"dev-1", "dev-2"} {
		doJSON(t, r, http.MethodPost, "/api/players", UpsertPlayerRequest{PlayerID: id, DisplayName: id})
		doJSON(t, r, http.MethodPost, "/api/join", JoinGameRequest{PlayerID: id, GameCode: "GAME0001"})
	}

	rec := doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-1", GameCode: "GAME0001", TagCode: "cp-a",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/games/GAME0001/leaderboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: status = %d, body = %s", rec.Code, rec.Body)
	}
	lb := decode[LeaderboardResponse](t, rec)
	if len(lb.Entries) != 2 {
		t.Fatalf("entries = %d, want both members", len(lb.Entries))
	}
	if lb.Entries[0].PlayerID != "dev-1" || lb.Entries[0].Scanned != 1 {
		t.Errorf("first = %+v, want dev-1 with 1", lb.Entries[0])
	}
	if lb.Entries[1].PlayerID != "dev-2" || lb.Entries[1].Scanned != 0 {
		t.Errorf("second = %+v, want dev-2 with 0", lb.Entries[1])
	}
}

func TestErrorStatuses(t *testing.T) {
	r := newTestRouter(t, "")

	rec := doJSON(t, r, http.MethodGet, "/api/games/GAME0042", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown game: status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: status = %d", rec.Code)
	}

	doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{Name: "X"})
	rec = doJSON(t, r, http.MethodPost, "/api/games/GAME0001/checkpoints", RegisterCheckpointRequest{
		TagCode: "cp-a", OrderIndex: 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/games/GAME0001/checkpoints", RegisterCheckpointRequest{
		TagCode: "cp-a", OrderIndex: 2,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate tag: status = %d", rec.Code)
	}

	// Claiming in a game still in setup conflicts.
	doJSON(t, r, http.MethodPost, "/api/players", UpsertPlayerRequest{PlayerID: "dev-1", DisplayName: "M"})
	doJSON(t, r, http.MethodPost, "/api/join", JoinGameRequest{PlayerID: "dev-1", GameCode: "GAME0001"})
	rec = doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-1", GameCode: "GAME0001", TagCode: "cp-a",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("claim in setup: status = %d", rec.Code)
	}

	// Non-member claims are forbidden.
	doJSON(t, r, http.MethodPost, "/api/games/GAME0001/start", nil)
	doJSON(t, r, http.MethodPost, "/api/players", UpsertPlayerRequest{PlayerID: "dev-2", DisplayName: "J"})
	rec = doJSON(t, r, http.MethodPost, "/api/claims", ClaimRequest{
		PlayerID: "dev-2", GameCode: "GAME0001", TagCode: "cp-a",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-member claim: status = %d", rec.Code)
	}
}

func TestOrganizerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunt-master"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	r := newTestRouter(t, string(hash))

	body, _ := json.Marshal(CreateGameRequest{Name: "Guarded"})

	req := httptest.NewRequest(http.MethodPost, "/api/games", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/games", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/games", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer hunt-master")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("good token: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Reads stay open.
	req = httptest.NewRequest(http.MethodGet, "/api/games", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("unauthenticated read: status = %d", rec.Code)
	}
}

func TestDeleteGameRoute(t *testing.T) {
	r := newTestRouter(t, "")

	doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{Name: "X"})
	rec := doJSON(t, r, http.MethodDelete, "/api/games/GAME0001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, r, http.MethodDelete, "/api/games/GAME0001", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete: status = %d", rec.Code)
	}
}
