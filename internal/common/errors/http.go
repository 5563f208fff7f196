// internal/common/errors/http.go
package errors

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// WriteJSON writes err as {"error": {...}} with the status from HTTPStatus.
// Internal errors are reported without their details.
func WriteJSON(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr)

	body := errorBody{
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Fields:  stdErr.Fields,
	}
	if status < http.StatusInternalServerError {
		body.Details = stdErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": body})
}
