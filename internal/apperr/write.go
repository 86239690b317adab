package apperr

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Message   string                 `json:"message"`
	Status    int                    `json:"status"`
	Category  Category               `json:"category"`
	Timestamp string                 `json:"timestamp"`
	RequestID string                 `json:"requestId"`
	Attempt   int                    `json:"attempt,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Write emits the uniform error response body and headers. In production
// mode the details map (stack-equivalent diagnostics) is stripped.
func Write(w http.ResponseWriter, e *Error, production bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Error-Category", string(e.Category))

	if e.Status == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", strconv.Itoa(60))
	}

	payload := errorPayload{
		Message:   e.Message,
		Status:    e.Status,
		Category:  e.Category,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: e.RequestID,
		Attempt:   e.Attempt,
	}

	if !production {
		details := make(map[string]interface{}, len(e.Details)+1)
		for k, v := range e.Details {
			details[k] = v
		}
		if e.Err != nil {
			details["cause"] = e.Err.Error()
		}
		if len(details) > 0 {
			payload.Details = details
		}
	}

	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: payload})
}
