// Package apperr defines the closed error taxonomy for the gateway.
//
// Every failure, from any pipeline stage, is normalized to exactly one
// Category before it leaves the pipeline. Stages construct an *Error at
// their failure boundary and never mutate it afterwards.
//
// Usage:
//
//	err := apperr.New(http.StatusBadGateway, "weather API unavailable")
//	if apperr.Retryable(err.Category) {
//	    // Retry with backoff...
//	}
package apperr
