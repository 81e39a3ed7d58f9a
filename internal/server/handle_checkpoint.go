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

type CheckpointResponse struct {
	ID           int64      `json:"id"`
	GameID       int64      `json:"gameId"`
	TagCode      string     `json:"tagCode"`
	OrderIndex   int        `json:"orderIndex"`
	LocationName string     `json:"locationName,omitempty"`
	Clue         string     `json:"clue,omitempty"`
	IsActive     bool       `json:"isActive"`
	Lat          *float64   `json:"lat,omitempty"`
	Lon          *float64   `json:"lon,omitempty"`
	AccuracyM    *int       `json:"accuracyM,omitempty"`
	ActivatedBy  *string    `json:"activatedBy,omitempty"`
	ActivatedAt  *time.Time `json:"activatedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func checkpointResponse(c hunt.Checkpoint) CheckpointResponse {
	return CheckpointResponse{
		ID:           c.ID,
		GameID:       c.GameID,
		TagCode:      c.TagCode,
		OrderIndex:   c.OrderIndex,
		LocationName: c.LocationName,
		Clue:         c.Clue,
		IsActive:     c.IsActive,
		Lat:          c.Lat,
		Lon:          c.Lon,
		AccuracyM:    c.AccuracyM,
		ActivatedBy:  c.ActivatedBy,
		ActivatedAt:  c.ActivatedAt,
		CreatedAt:    c.CreatedAt,
	}
}

func checkpointIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "checkpointID"), 10, 64)
	return id, err == nil
}

type RegisterCheckpointRequest struct {
	TagCode      string `json:"tagCode"`
	LocationName string `json:"locationName"`
	OrderIndex   int    `json:"orderIndex"`
}

func handleRegisterCheckpoint(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		var req RegisterCheckpointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.TagCode = strings.TrimSpace(req.TagCode)
		if req.TagCode == "" {
			writeError(w, http.StatusBadRequest, "tagCode is required")
			return
		}

		cp, err := svc.RegisterCheckpoint(r.Context(), g.Code, req.TagCode, req.LocationName, req.OrderIndex)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, checkpointResponse(cp))
	}
}

type ActivateCheckpointRequest struct {
	GameID       int64    `json:"gameId"`
	OrderIndex   int      `json:"orderIndex"`
	LocationName string   `json:"locationName"`
	Clue         string   `json:"clue"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	AccuracyM    *int     `json:"accuracyM"`
}

func handleActivateCheckpoint(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tagCode := chi.URLParam(r, "tagCode")

		var req ActivateCheckpointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.GameID == 0 {
			writeError(w, http.StatusBadRequest, "gameId is required")
			return
		}

		var geo *hunt.Geo
		if req.Lat != nil && req.Lon != nil {
			geo = &hunt.Geo{Lat: *req.Lat, Lon: *req.Lon}
			if req.AccuracyM != nil {
				geo.AccuracyM = *req.AccuracyM
			}
		}

		cp, err := svc.ActivateCheckpoint(r.Context(), req.GameID, tagCode, req.OrderIndex,
			req.LocationName, req.Clue, geo, organizerFrom(r))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, checkpointResponse(cp))
	}
}

type SetCheckpointActiveRequest struct {
	Active bool `json:"active"`
}

func handleSetCheckpointActive(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := checkpointIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid checkpoint id")
			return
		}

		var req SetCheckpointActiveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cp, err := svc.SetCheckpointActive(r.Context(), id, req.Active)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, checkpointResponse(cp))
	}
}

func handleDeleteCheckpoint(svc *hunt.Service, cache *leaderboard.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := checkpointIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid checkpoint id")
			return
		}

		cp, err := svc.Checkpoint(r.Context(), id)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if err := svc.DeleteCheckpoint(r.Context(), id); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		// Claims on this checkpoint were cascaded away.
		if err := cache.Drop(r.Context(), cp.GameID); err != nil {
			logger.Warn("cache drop failed", "game_id", cp.GameID, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleListCheckpoints(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := gameFromRequest(r, svc)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		cps, err := svc.ListCheckpoints(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]CheckpointResponse, 0, len(cps))
		for _, cp := range cps {
			out = append(out, checkpointResponse(cp))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
