// Package reqctx carries per-request correlation data (request id,
// trace id, client identity) through the pipeline via context.
package reqctx
