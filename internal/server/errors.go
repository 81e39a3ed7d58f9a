package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tagquest/api/internal/hunt"
)

// writeDomainError maps the engine's error taxonomy onto HTTP
// statuses. Anything outside the taxonomy is a 500 and gets logged;
// the taxonomy errors carry their message through to the client.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, hunt.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hunt.ErrDuplicate),
		errors.Is(err, hunt.ErrInvalidState),
		errors.Is(err, hunt.ErrGameNotActive),
		errors.Is(err, hunt.ErrCheckpointInactive):
		status = http.StatusConflict
	case errors.Is(err, hunt.ErrOutOfOrder):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, hunt.ErrNotMember):
		status = http.StatusForbidden
	case errors.Is(err, hunt.ErrInvalidArgument):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
