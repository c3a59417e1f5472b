package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

var fallback = zerolog.New(os.Stdout).With().Timestamp().Logger()

// FromContext returns the request-scoped logger attached by a *Logger (or by
// the helpers below). Code without an attached logger gets a plain default,
// so callers never need a nil check.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return *entry
		}
	}
	return fallback
}

// IntoContext attaches the logger for downstream FromContext calls.
func IntoContext(ctx context.Context, entry zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func withStrField(ctx context.Context, key, value string) context.Context {
	entry := FromContext(ctx).With().Str(key, value).Logger()
	return IntoContext(ctx, entry)
}

// WithRequestID tags every downstream log line with the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withStrField(ctx, "request_id", requestID)
}

// WithConversationID tags every downstream log line with the conversation id.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return withStrField(ctx, "conversation_id", conversationID)
}

// WithCustomerID tags every downstream log line with the customer id.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return withStrField(ctx, "customer_id", customerID)
}

// WithEventRoute tags every downstream log line with the classifier route.
func WithEventRoute(ctx context.Context, route string) context.Context {
	return withStrField(ctx, "event_route", route)
}
