package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

type GameResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func gameResponse(g hunt.Game) GameResponse {
	return GameResponse{
		ID:        g.ID,
		Code:      g.Code,
		Name:      g.Name,
		Status:    string(g.Status),
		CreatedAt: g.CreatedAt,
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	}
}

// gameFromRequest resolves the {game} route parameter, which accepts
// either a numeric ID or a GAME code.
func gameFromRequest(r *http.Request, svc *hunt.Service) (hunt.Game, error) {
	return svc.Game(r.Context(), chi.URLParam(r, "game"))
}

type CreateGameRequest struct {
	Name string `json:"name"`
}

func handleCreateGame(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		if r.URL.Query().Get("reset") == "true" {
			// Everything is about to be wiped, so evict the cached
			// standings of every game first.
			games, err := svc.ListGames(r.Context())
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			for _, g := range games {
				if err := cache.Drop(r.Context(), g.ID); err != nil {
					logger.Warn("cache drop failed", "game_id", g.ID, "error", err)
				}
			}

			g, err := svc.ResetGame(r.Context(), req.Name)
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, gameResponse(g))
			return
		}

		g, err := svc.CreateGame(r.Context(), req.Name)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, gameResponse(g))
	}
}

func handleListGames(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := svc.ListGames(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]GameResponse, 0, len(games))
		for _, g := range games {
			out = append(out, gameResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetGame(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, gameResponse(g))
	}
}

func handleStartGame(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		g, err = svc.StartGame(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, gameResponse(g))
	}
}

func handleEndGame(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		g, err = svc.EndGame(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, gameResponse(g))
	}
}

func handleDeleteGame(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		orphans := r.URL.Query().Get("orphans") == "true"

		if err := svc.DeleteGame(r.Context(), g.ID, orphans); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if err := cache.Drop(r.Context(), g.ID); err != nil {
			logger.Warn("cache drop failed", "game_id", g.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
