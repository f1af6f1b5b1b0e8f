package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/pkg/combat"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDenial reports a refused submission. Denials are expected outcomes, not
// server errors; concurrent modification gets its own status so clients know a
// retry may succeed.
func writeDenial(w http.ResponseWriter, d *combat.Denial) {
	status := http.StatusUnprocessableEntity
	if d.Reason == combat.DenyConcurrentModification {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"rejected": true,
		"reason":   d.Reason,
		"detail":   d.Detail,
	})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
