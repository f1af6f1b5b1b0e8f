package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mthorne/provincia/api/internal/auth"
	"github.com/mthorne/provincia/api/internal/service"
)

// ProvinceHandler handles province lifecycle and read-side endpoints.
type ProvinceHandler struct {
	provinceSvc *service.ProvinceService
	targetSvc   *service.TargetService
}

// NewProvinceHandler creates a ProvinceHandler.
func NewProvinceHandler(provinceSvc *service.ProvinceService, targetSvc *service.TargetService) *ProvinceHandler {
	return &ProvinceHandler{provinceSvc: provinceSvc, targetSvc: targetSvc}
}

// CreateProvince handles POST /api/v1/provinces
func (h *ProvinceHandler) CreateProvince(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	province, err := h.provinceSvc.Create(r.Context(), playerID, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrProvinceExists) {
			writeError(w, http.StatusConflict, "player already has a province")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, province)
}

// GetProvince handles GET /api/v1/provinces/{id}
func (h *ProvinceHandler) GetProvince(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	view, err := h.provinceSvc.Get(r.Context(), playerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListTargets handles GET /api/v1/provinces/{id}/targets
func (h *ProvinceHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	provinceID := r.PathValue("id")

	// Target lists are owner-scoped: the range band is computed from the
	// viewer's own networth.
	if _, err := h.provinceSvc.Get(r.Context(), playerID, provinceID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	targets, err := h.targetSvc.ListEligible(r.Context(), provinceID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// ListReports handles GET /api/v1/provinces/{id}/reports
func (h *ProvinceHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	reports, err := h.provinceSvc.Reports(r.Context(), playerID, r.PathValue("id"), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if reports == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListEspionageReports handles GET /api/v1/provinces/{id}/espionage
func (h *ProvinceHandler) ListEspionageReports(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	reports, err := h.provinceSvc.EspionageReports(r.Context(), playerID, r.PathValue("id"), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if reports == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListRetaliation handles GET /api/v1/provinces/{id}/retaliation
func (h *ProvinceHandler) ListRetaliation(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	windows, err := h.provinceSvc.Retaliation(r.Context(), playerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if windows == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (h *ProvinceHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProvinceNotFound), errors.Is(err, service.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, "province not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "not your province")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
