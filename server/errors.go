package server

import (
	"encoding/json"
	"net/http"
)

// APIError is the standard error response shape. Fields is set only for
// validation failures and maps field name to the failed rule.
type APIError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:  errMsg,
		Fields: fields,
	})
}
