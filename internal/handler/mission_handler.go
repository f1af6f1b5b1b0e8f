package handler

import (
	"errors"
	"net/http"

	"github.com/mthorne/provincia/api/internal/auth"
	"github.com/mthorne/provincia/api/internal/service"
)

// MissionHandler handles attack submission and battle report reads.
type MissionHandler struct {
	missionSvc  *service.MissionService
	provinceSvc *service.ProvinceService
}

// NewMissionHandler creates a MissionHandler.
func NewMissionHandler(missionSvc *service.MissionService, provinceSvc *service.ProvinceService) *MissionHandler {
	return &MissionHandler{missionSvc: missionSvc, provinceSvc: provinceSvc}
}

// SubmitMission handles POST /api/v1/missions
func (h *MissionHandler) SubmitMission(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req service.SubmitMissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "target_id is required")
		return
	}

	report, denial, err := h.missionSvc.Submit(r.Context(), playerID, req)
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

// GetReport handles GET /api/v1/reports/{missionID}
func (h *MissionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	missionID := r.PathValue("missionID")

	report, err := h.provinceSvc.Report(r.Context(), playerID, missionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTargetNotFound):
			writeError(w, http.StatusNotFound, "report not found")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "not a combatant in this battle")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}
