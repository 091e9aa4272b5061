package logger

import (
	"context"

	"github.com/craftbom/quotora/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// WithRequestID stores the request id for later log enrichment.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id if one was set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the global logger enriched with request and correlation
// identifiers from the context.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		log = log.With(zap.String("request_id", rid))
	}
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		log = log.With(zap.String("correlation_id", cid))
	}
	return log
}
