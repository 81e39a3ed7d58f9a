package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "TagQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the TagQuest scavenger hunt engine.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/games")
	listGames.SetSummary("List games")
	listGames.AddRespStructure([]GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listGames)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a game in setup status with a fresh GAME code. " +
		"With ?reset=true, wipes all existing game state first. Requires organizer token.")
	createGame.AddReqStructure(CreateGameRequest{})
	createGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createGame)

	// GET /api/games/{game}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{game}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Looks up a game by numeric ID or GAME code.")
	getGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// POST /api/games/{game}/start
	startGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{game}/start")
	startGame.SetSummary("Start game")
	startGame.SetDescription("Moves a game from setup to active. Requires organizer token.")
	startGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	startGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	startGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(startGame)

	// POST /api/games/{game}/end
	endGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{game}/end")
	endGame.SetSummary("End game")
	endGame.SetDescription("Moves a game from active to ended. Requires organizer token.")
	endGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	endGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(endGame)

	// DELETE /api/games/{game}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{game}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Deletes a game with its checkpoints, memberships and claims. " +
		"With ?orphans=true, also removes players left with no claims anywhere. Requires organizer token.")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGame)

	// GET /api/games/{game}/checkpoints
	listCheckpoints, _ := r.NewOperationContext(http.MethodGet, "/api/games/{game}/checkpoints")
	listCheckpoints.SetSummary("List checkpoints")
	listCheckpoints.SetDescription("Lists a game's checkpoints in order-index order.")
	listCheckpoints.AddRespStructure([]CheckpointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listCheckpoints.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listCheckpoints)

	// POST /api/games/{game}/checkpoints
	registerCP, _ := r.NewOperationContext(http.MethodPost, "/api/games/{game}/checkpoints")
	registerCP.SetSummary("Register checkpoint")
	registerCP.SetDescription("Registers an inactive checkpoint with a unique tag code and order index. " +
		"Requires organizer token.")
	registerCP.AddReqStructure(RegisterCheckpointRequest{})
	registerCP.AddRespStructure(CheckpointResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	registerCP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	registerCP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(registerCP)

	// PUT /api/checkpoints/{tagCode}/activate
	activateCP, _ := r.NewOperationContext(http.MethodPut, "/api/checkpoints/{tagCode}/activate")
	activateCP.SetSummary("Activate checkpoint")
	activateCP.SetDescription("Activates the tag for a game, replacing any prior registration of the same " +
		"tag code wholesale. Requires organizer token.")
	activateCP.AddReqStructure(ActivateCheckpointRequest{})
	activateCP.AddRespStructure(CheckpointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	activateCP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	activateCP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(activateCP)

	// PATCH /api/checkpoints/{checkpointID}/active
	setActive, _ := r.NewOperationContext(http.MethodPatch, "/api/checkpoints/{checkpointID}/active")
	setActive.SetSummary("Set checkpoint active flag")
	setActive.AddReqStructure(SetCheckpointActiveRequest{})
	setActive.AddRespStructure(CheckpointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	setActive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(setActive)

	// DELETE /api/checkpoints/{checkpointID}
	deleteCP, _ := r.NewOperationContext(http.MethodDelete, "/api/checkpoints/{checkpointID}")
	deleteCP.SetSummary("Delete checkpoint")
	deleteCP.SetDescription("Deletes a checkpoint together with every claim on it. Requires organizer token.")
	deleteCP.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteCP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteCP)

	// POST /api/players
	upsertPlayer, _ := r.NewOperationContext(http.MethodPost, "/api/players")
	upsertPlayer.SetSummary("Register or update player")
	upsertPlayer.SetDescription("Upserts a player profile keyed by the scanning device's stable ID.")
	upsertPlayer.AddReqStructure(UpsertPlayerRequest{})
	upsertPlayer.AddRespStructure(PlayerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	upsertPlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(upsertPlayer)

	// POST /api/join
	join, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	join.SetSummary("Join game")
	join.SetDescription("Adds a player to a game with a fresh progress cursor. Idempotent for existing members.")
	join.AddReqStructure(JoinGameRequest{})
	join.AddRespStructure(MembershipResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	join.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	join.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(join)

	// POST /api/claims
	claim, _ := r.NewOperationContext(http.MethodPost, "/api/claims")
	claim.SetSummary("Claim checkpoint")
	claim.SetDescription("Records a tag scan. Checkpoints must be claimed in order-index order; " +
		"re-scanning an already-claimed tag is a success no-op.")
	claim.AddReqStructure(ClaimRequest{})
	claim.AddRespStructure(ClaimResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	claim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	claim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	claim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	claim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(claim)

	// DELETE /api/progress
	deleteProgress, _ := r.NewOperationContext(http.MethodDelete, "/api/progress")
	deleteProgress.SetSummary("Delete one progress row")
	deleteProgress.SetDescription("Removes a single claim without touching the player's cursor. " +
		"Requires organizer token.")
	deleteProgress.AddReqStructure(DeleteProgressRequest{})
	deleteProgress.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteProgress)

	// DELETE /api/players/{playerID}/progress
	deletePP, _ := r.NewOperationContext(http.MethodDelete, "/api/players/{playerID}/progress")
	deletePP.SetSummary("Delete player progress")
	deletePP.SetDescription("Removes a player's claims and memberships, optionally scoped to one game " +
		"via ?game=; ?deletePlayer=true also removes the player row. Requires organizer token.")
	deletePP.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deletePP.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deletePP)

	// GET /api/games/{game}/leaderboard
	lb, _ := r.NewOperationContext(http.MethodGet, "/api/games/{game}/leaderboard")
	lb.SetSummary("Leaderboard")
	lb.SetDescription("Ranks a game's members by checkpoints scanned, earliest last scan first on ties.")
	lb.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	lb.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(lb)

	// GET /api/games/{game}/players/{playerID}
	playerState, _ := r.NewOperationContext(http.MethodGet, "/api/games/{game}/players/{playerID}")
	playerState.SetSummary("Player state")
	playerState.SetDescription("Returns a player's progress cursor and claims in one game.")
	playerState.AddRespStructure(PlayerStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	playerState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(playerState)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
