package httpapi

import (
	"encoding/json"
	"net/http"

	"bifrost/internal/berr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("encode response failed")
	}
}

// writeV2Error maps a berr error to the {data:[],errors:[...]} shape and
// its prescribed HTTP status.
func writeV2Error(w http.ResponseWriter, err error) {
	writeJSON(w, berr.HTTPStatus(err), Envelope{Data: []map[string]any{}, Errors: []string{err.Error()}})
}

// writeV1Error maps a berr error onto the legacy dialect's bare error
// object shape.
func writeV1Error(w http.ResponseWriter, err error) {
	writeJSON(w, berr.HTTPStatus(err), map[string]any{
		"error": map[string]any{"description": err.Error()},
	})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
