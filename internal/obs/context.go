package obs

import (
	"context"
	"sync"
)

type (
	routePatternKey struct{}
	annotationsKey  struct{}
)

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// annotations collects per-request fields set by handlers for the access log.
type annotations struct {
	mu     sync.Mutex
	fields map[string]string
}

// WithAnnotations attaches an empty annotation set to ctx.
func WithAnnotations(ctx context.Context) context.Context {
	return context.WithValue(ctx, annotationsKey{}, &annotations{fields: map[string]string{}})
}

// Annotate records key=value on the request log line. It is a no-op when ctx
// was not prepared by RequestLogger.
func Annotate(ctx context.Context, key, value string) {
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok || a == nil {
		return
	}
	a.mu.Lock()
	a.fields[key] = value
	a.mu.Unlock()
}

func annotationsFrom(ctx context.Context) map[string]string {
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok || a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}
	return out
}
