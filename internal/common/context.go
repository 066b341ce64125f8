package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID contextKey = "run_id"
	ContextKeyStage contextKey = "stage"
)

// WithRunID tags the context with the identifier of the current run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithStage tags the context with the stage being executed.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// StageFromContext extracts the stage name from context
func StageFromContext(ctx context.Context) string {
	if stage, ok := ctx.Value(ContextKeyStage).(string); ok {
		return stage
	}
	return ""
}
