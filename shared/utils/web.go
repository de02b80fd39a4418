package utils

import (
	"encoding/json"
	"net/http"

	"github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/itchan-dev/boardkeeper/shared/logger"
)

// WriteErrorAndStatusCode answers with the status err maps to. Internal errors
// are logged and hidden from the client.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("request failed", "component", "http", "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "component", "http", "error", err)
	}
}
