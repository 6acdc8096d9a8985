package shared

import "context"

type traceContextKey struct{}

// ContextWithTraceID stores the request trace id in context.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceContextKey{}, id)
}

// TraceIDFromContext extracts the trace id, empty when none was attached.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceContextKey{}).(string)
	return id
}
