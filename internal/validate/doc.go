// Package validate sanitizes and constrains inbound request parameters
// before any other pipeline stage touches them.
package validate
