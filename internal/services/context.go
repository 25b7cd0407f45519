package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	unitKey      contextKey = "unit"
	stageKey     contextKey = "stage"
	directoryKey contextKey = "directory"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUnit annotates context with the processing unit's prefix.
func WithUnit(ctx context.Context, unit string) context.Context {
	if unit == "" {
		return ctx
	}
	return context.WithValue(ctx, unitKey, unit)
}

// UnitFromContext returns the unit prefix if present.
func UnitFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(unitKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDirectory annotates context with the directory being processed.
func WithDirectory(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, directoryKey, dir)
}

// DirectoryFromContext returns the directory path if present.
func DirectoryFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(directoryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
