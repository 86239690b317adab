// Package security issues the per-session anti-forgery token and the
// fixed set of hardening response headers, including a content security
// policy bound to a per-request nonce.
package security
