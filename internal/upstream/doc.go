// Package upstream wraps the external weather API: a thin HTTP client
// whose failures are normalized into the error taxonomy, and a periodic
// reachability probe backing the health endpoint.
package upstream
