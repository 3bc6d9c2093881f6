package web

import (
	"encoding/json"
	"net/http"
)

// RenderJSON sets the correct HTTP headers for JSON, then writes the specified data (typically
// a struct) encoded in JSON.
func RenderJSON(w http.ResponseWriter, data any) error {
	return RenderJSONStatus(w, http.StatusOK, data)
}

// RenderJSONStatus is RenderJSON with an explicit status code.
func RenderJSONStatus(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", "-1")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	return enc.Encode(data)
}
