package server

import (
	"log/slog"
	"net/http"

	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

type LeaderboardEntryResponse struct {
	PlayerID    string  `json:"playerId"`
	DisplayName string  `json:"displayName"`
	Team        string  `json:"team,omitempty"`
	Scanned     int     `json:"checkpointsScanned"`
	LastScanAt  *string `json:"lastScanAt,omitempty"`
}

type LeaderboardResponse struct {
	GameID  int64                      `json:"gameId"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

func handleLeaderboard(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		entries, hit, err := cache.Entries(r.Context(), g.ID)
		if err != nil {
			logger.Warn("cache read failed", "game_id", g.ID, "error", err)
			hit = false
		}
		if !hit {
			entries, err = svc.Leaderboard(r.Context(), g.ID)
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			if err := cache.Fill(r.Context(), g.ID, entries); err != nil {
				logger.Warn("cache fill failed", "game_id", g.ID, "error", err)
			}
		}

		out := LeaderboardResponse{GameID: g.ID, Entries: make([]LeaderboardEntryResponse, 0, len(entries))}
		for _, e := range entries {
			out.Entries = append(out.Entries, LeaderboardEntryResponse{
				PlayerID:    e.PlayerID,
				DisplayName: e.DisplayName,
				Team:        e.Team,
				Scanned:     e.Scanned,
				LastScanAt:  e.LastScanAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
