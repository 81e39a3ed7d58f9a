package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

type PlayerResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Team        string    `json:"team,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type MembershipResponse struct {
	PlayerID           string     `json:"playerId"`
	GameID             int64      `json:"gameId"`
	JoinedAt           time.Time  `json:"joinedAt"`
	CheckpointsScanned int        `json:"checkpointsScanned"`
	LastScanAt         *time.Time `json:"lastScanAt,omitempty"`
	NextRequired       int        `json:"nextRequired"`
}

func membershipResponse(m hunt.Membership) MembershipResponse {
	return MembershipResponse{
		PlayerID:           m.PlayerID,
		GameID:             m.GameID,
		JoinedAt:           m.JoinedAt,
		CheckpointsScanned: m.CheckpointsScanned,
		LastScanAt:         m.LastScanAt,
		NextRequired:       m.NextRequired,
	}
}

type UpsertPlayerRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Team        string `json:"team"`
}

func handleUpsertPlayer(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertPlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.PlayerID = strings.TrimSpace(req.PlayerID)
		req.DisplayName = strings.TrimSpace(req.DisplayName)

		p, err := svc.UpsertPlayer(r.Context(), req.PlayerID, req.DisplayName, req.Team)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, PlayerResponse{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Team:        p.Team,
			CreatedAt:   p.CreatedAt,
		})
	}
}

type JoinGameRequest struct {
	PlayerID string `json:"playerId"`
	GameCode string `json:"gameCode"`
}

func handleJoinGame(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" || req.GameCode == "" {
			writeError(w, http.StatusBadRequest, "playerId and gameCode are required")
			return
		}

		m, err := svc.JoinGame(r.Context(), req.PlayerID, req.GameCode)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, membershipResponse(m))
	}
}

type ClaimRecord struct {
	CheckpointID int64     `json:"checkpointId"`
	OrderIndex   int       `json:"orderIndex"`
	ClaimedAt    time.Time `json:"claimedAt"`
}

type PlayerStateResponse struct {
	Membership MembershipResponse `json:"membership"`
	Claims     []ClaimRecord      `json:"claims"`
}

func handlePlayerState(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		playerID := chi.URLParam(r, "playerID")

		state, err := svc.PlayerGameState(r.Context(), playerID, g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		claims := make([]ClaimRecord, 0, len(state.Claims))
		for _, c := range state.Claims {
			claims = append(claims, ClaimRecord{
				CheckpointID: c.CheckpointID,
				OrderIndex:   c.OrderIndex,
				ClaimedAt:    c.ClaimedAt,
			})
		}
		writeJSON(w, http.StatusOK, PlayerStateResponse{
			Membership: membershipResponse(state.Membership),
			Claims:     claims,
		})
	}
}

func handleDeletePlayerProgress(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "playerID")
		deletePlayer := r.URL.Query().Get("deletePlayer") == "true"

		var gameID *int64
		if raw := r.URL.Query().Get("game"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid game id")
				return
			}
			gameID = &id
		}

		if err := svc.DeletePlayerProgress(r.Context(), playerID, gameID, deletePlayer); err != nil {
			writeDomainError(w, logger, err)
			return
		}

		if gameID != nil {
			if err := cache.Remove(r.Context(), *gameID, playerID); err != nil {
				logger.Warn("cache evict failed", "game_id", *gameID, "player_id", playerID, "error", err)
			}
		} else if games, err := svc.ListGames(r.Context()); err == nil {
			for _, g := range games {
				if err := cache.Remove(r.Context(), g.ID, playerID); err != nil {
					logger.Warn("cache evict failed", "game_id", g.ID, "player_id", playerID, "error", err)
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
