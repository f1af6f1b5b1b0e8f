package handler

import (
	"net/http"

	"github.com/mthorne/provincia/api/internal/service"
)

// TurnHandler exposes the turn tick to the scheduler that drives the game
// clock.
type TurnHandler struct {
	turnSvc *service.TurnService
}

// NewTurnHandler creates a TurnHandler.
func NewTurnHandler(turnSvc *service.TurnService) *TurnHandler {
	return &TurnHandler{turnSvc: turnSvc}
}

// AdvanceTurn handles POST /api/v1/turns/advance
func (h *TurnHandler) AdvanceTurn(w http.ResponseWriter, r *http.Request) {
	returned, err := h.turnSvc.Advance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"armies_returned": len(returned),
		"returned":        returned,
	})
}
