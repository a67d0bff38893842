package middleware

import (
	"context"

	"finitefield.org/zephyr-web/internal/storage"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyIsHTMX   ctxKey = "is_htmx"
	ctxKeySession  ctxKey = "session"
	ctxKeyStorage  ctxKey = "storage"
	ctxKeyLocaleFB ctxKey = "locale_fallback"
)

// WithHTMX marks request as HTMX
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

// WithStorage attaches the client-side store to ctx.
func WithStorage(ctx context.Context, local storage.Local) context.Context {
	return context.WithValue(ctx, ctxKeyStorage, local)
}

// StorageFromContext returns the request's client-side store. Requests that did not pass
// through LocalStorage get a throwaway in-memory store.
func StorageFromContext(ctx context.Context) storage.Local {
	if v, ok := ctx.Value(ctxKeyStorage).(storage.Local); ok && v != nil {
		return v
	}
	return storage.NewMemory(nil)
}
