package logging

import (
	"context"
	"log/slog"

	"lectern/internal/services"
)

// Field keys shared across the pipeline's log output.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldUnit      = "unit"
	FieldStage     = "stage"
	FieldDirectory = "directory"
)

// ContextFields extracts the run correlation fields stored on ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if runID, ok := services.RunIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldRunID, runID))
	}
	if unit, ok := services.UnitFromContext(ctx); ok {
		attrs = append(attrs, String(FieldUnit, unit))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if dir, ok := services.DirectoryFromContext(ctx); ok {
		attrs = append(attrs, String(FieldDirectory, dir))
	}
	return attrs
}

// WithContext returns a logger carrying the correlation fields found on ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
