package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/tagquest/api/internal/hunt"
	"github.com/tagquest/api/internal/leaderboard"
)

func addRoutes(r chi.Router, logger *slog.Logger, svc *hunt.Service, cache *leaderboard.Cache, db *sql.DB, rdb *redis.Client, organizerTokenHash string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("TagQuest API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	// Read-only routes, open to players.
	r.Get("/api/games", handleListGames(svc, logger))
	r.Get("/api/games/{game}", handleGetGame(svc, logger))
	r.Get("/api/games/{game}/checkpoints", handleListCheckpoints(svc, logger))
	r.Get("/api/games/{game}/leaderboard", handleLeaderboard(svc, cache, logger))
	r.Get("/api/games/{game}/players/{playerID}", handlePlayerState(svc, logger))

	// Player mutations. Identity is taken from the request body; the
	// engine trusts the scanning app.
	r.Post("/api/players", handleUpsertPlayer(svc, logger))
	r.Post("/api/join", handleJoinGame(svc, logger))
	r.Post("/api/claims", handleClaim(svc, cache, logger))

	// Organizer mutations, guarded by the shared bearer token.
	r.Group(func(r chi.Router) {
		r.Use(organizerAuth(organizerTokenHash))

		r.Post("/api/games", handleCreateGame(svc, cache, logger))
		r.Post("/api/games/{game}/start", handleStartGame(svc, logger))
		r.Post("/api/games/{game}/end", handleEndGame(svc, logger))
		r.Delete("/api/games/{game}", handleDeleteGame(svc, cache, logger))

		r.Post("/api/games/{game}/checkpoints", handleRegisterCheckpoint(svc, logger))
		r.Put("/api/checkpoints/{tagCode}/activate", handleActivateCheckpoint(svc, logger))
		r.Patch("/api/checkpoints/{checkpointID}/active", handleSetCheckpointActive(svc, logger))
		r.Delete("/api/checkpoints/{checkpointID}", handleDeleteCheckpoint(svc, cache, logger))

		r.Delete("/api/progress", handleDeleteProgress(svc, logger))
		r.Delete("/api/players/{playerID}/progress", handleDeletePlayerProgress(svc, cache, logger))
	})
}
