package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across facts.
// Use these constants instead of raw strings.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"

	// Ingestion
	FieldEntity = "entity"
	FieldField  = "field"
	FieldSource = "source"
	FieldKind   = "kind"
	FieldRaw    = "raw"

	FieldPath       = "path"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	entityKey    contextKey = "logger_entity"
	componentKey contextKey = "logger_component"
)

// WithRunID tags the context with the id of one ingestion run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithEntity tags the context with the entity being assembled.
func WithEntity(ctx context.Context, entity string) context.Context {
	return context.WithValue(ctx, entityKey, entity)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context as key-value pairs
// for Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if entity, ok := ctx.Value(entityKey).(string); ok && entity != "" {
		fields = append(fields, FieldEntity, entity)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base (or the global logger when base is nil) with the
// context's fields attached.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
//	engine := coerce.New(coerce.WithLogger(logger.ComponentLogger("coerce")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
