// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// OperatorSource tells how the caller authenticated.
type OperatorSource string

const (
	// OperatorSourceJWT is an interactive operator with a bearer token.
	OperatorSourceJWT OperatorSource = "jwt"

	// OperatorSourceAPIKey is a machine integration (POS terminal, import job).
	OperatorSourceAPIKey OperatorSource = "api_key"

	// OperatorSourceSystem is internal tooling (seed, migrations).
	OperatorSourceSystem OperatorSource = "system"
)

// OperatorContext identifies who is performing ledger operations.
// Every mutation stamps its operation header and audit rows with it.
type OperatorContext struct {
	// Subject is the stable identifier (JWT sub or API key name)
	Subject string

	// Name is the display name used in journals and audit
	Name string

	// Source tells which credential produced this identity
	Source OperatorSource
}

type operatorContextKey struct{}

// WithOperator adds OperatorContext to context.
func WithOperator(ctx context.Context, op *OperatorContext) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns OperatorContext from context.
func GetOperator(ctx context.Context) *OperatorContext {
	if v, ok := ctx.Value(operatorContextKey{}).(*OperatorContext); ok {
		return v
	}
	return nil
}

// OperatorName returns the operator display name or "system" when the
// context carries no identity (seed tooling, tests).
func OperatorName(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil && op.Name != "" {
		return op.Name
	}
	return "system"
}
