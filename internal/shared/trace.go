package shared

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}
type listKey struct{}

// WithRunID attaches a run_id to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts run_id from context. Returns "-" if absent.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok && v != "" {
		return v
	}
	return "-"
}

// NewRunID generates a new run_id. One run is one invocation of t.
func NewRunID() string {
	return uuid.NewString()
}

// WithList attaches the active list name to the context.
func WithList(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, listKey{}, name)
}

// List extracts the active list name. Returns "" if absent.
func List(ctx context.Context) string {
	if v, ok := ctx.Value(listKey{}).(string); ok {
		return v
	}
	return ""
}
