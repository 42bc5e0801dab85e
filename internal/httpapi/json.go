package httpapi

import (
	"encoding/json"
	"net/http"
)

// toJSON writes v as the JSON body with the given status. Encoding errors
// are swallowed: by this point the status line is already on the wire.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
