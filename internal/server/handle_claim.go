package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

type ClaimRequest struct {
	PlayerID    string `json:"playerId"`
	GameCode    string `json:"gameCode"`
	TagCode     string `json:"tagCode"`
	ClientToken string `json:"clientToken"`
}

type ClaimResponse struct {
	Status             string `json:"status"`
	OrderIndex         int    `json:"orderIndex"`
	CheckpointsScanned int    `json:"checkpointsScanned"`
	NextRequired       int    `json:"nextRequired"`
}

func handleClaim(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.PlayerID = strings.TrimSpace(req.PlayerID)
		req.TagCode = strings.TrimSpace(req.TagCode)
		if req.PlayerID == "" || req.GameCode == "" || req.TagCode == "" {
			writeError(w, http.StatusBadRequest, "playerId, gameCode and tagCode are required")
			return
		}

		res, err := svc.ClaimCheckpoint(r.Context(), req.PlayerID, req.GameCode, req.TagCode, req.ClientToken)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		if !res.AlreadyClaimed {
			// The standings changed, so the cached copy is stale.
			// Invalidate rather than update in place: writing a single
			// member into a cold key would turn a partial cache into
			// what looks like the full standings.
			if err := cache.Drop(r.Context(), res.Membership.GameID); err != nil {
				logger.Warn("cache drop failed", "game_id", res.Membership.GameID, "error", err)
			}
		}

		status := "claimed"
		if res.AlreadyClaimed {
			status = "already_claimed"
		}
		writeJSON(w, http.StatusOK, ClaimResponse{
			Status:             status,
			OrderIndex:         res.Claim.OrderIndex,
			CheckpointsScanned: res.Membership.CheckpointsScanned,
			NextRequired:       res.Membership.NextRequired,
		})
	}
}

type DeleteProgressRequest struct {
	GameID       int64  `json:"gameId"`
	PlayerID     string `json:"playerId"`
	CheckpointID int64  `json:"checkpointId"`
}

func handleDeleteProgress(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeleteProgressRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.GameID == 0 || req.PlayerID == "" || req.CheckpointID == 0 {
			writeError(w, http.StatusBadRequest, "gameId, playerId and checkpointId are required")
			return
		}

		if err := svc.DeleteProgress(r.Context(), req.GameID, req.PlayerID, req.CheckpointID); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
