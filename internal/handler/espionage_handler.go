package handler

import (
	"errors"
	"net/http"

	"github.com/mthorne/provincia/api/internal/auth"
	"github.com/mthorne/provincia/api/internal/service"
)

// EspionageHandler handles spy run submission.
type EspionageHandler struct {
	espionageSvc *service.EspionageService
}

// NewEspionageHandler creates an EspionageHandler.
func NewEspionageHandler(espionageSvc *service.EspionageService) *EspionageHandler {
	return &EspionageHandler{espionageSvc: espionageSvc}
}

// SubmitEspionage handles POST /api/v1/espionage
func (h *EspionageHandler) SubmitEspionage(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req service.SubmitEspionageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "target_id is required")
		return
	}

	report, denial, err := h.espionageSvc.Submit(r.Context(), playerID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProvinceNotFound):
			writeError(w, http.StatusNotFound, "you have no province")
		case errors.Is(err, service.ErrTargetNotFound):
			writeError(w, http.StatusNotFound, "target province not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if denial != nil {
		writeDenial(w, denial)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
