package models

import (
	"context"
)

type operationContextKey struct{}

// OperationContext carries caller-supplied metadata for an engine operation
// down to the ledger backends, which record it alongside the transfer.
type OperationContext struct {
	Reference string // idempotency / external reference
	Source    string // cli, keeper, ...
}

// WithOperationContext attaches operation metadata to a context.
func WithOperationContext(ctx context.Context, oc *OperationContext) context.Context {
	return context.WithValue(ctx, operationContextKey{}, oc)
}

// GetOperationContext retrieves operation metadata from context, or nil if absent.
func GetOperationContext(ctx context.Context) *OperationContext {
	oc, _ := ctx.Value(operationContextKey{}).(*OperationContext)
	return oc
}
