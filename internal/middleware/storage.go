package middleware

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/storage"
)

const storageCookieName = "ZEPHYR_STORAGE"

// LocalStorage restores the client-side key/value store from its signed cookie and writes it
// back before the response when a handler changed it.
func LocalStorage(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw string
			if c, err := r.Cookie(storageCookieName); err == nil {
				raw = c.Value
			}
			store, err := storage.ParseCookie(opts.Codec, storageCookieName, raw)
			if err != nil {
				level := zap.DebugLevel
				if errors.Is(err, storage.ErrInvalidSignature) {
					level = zap.WarnLevel
				}
				observability.FromContext(r.Context()).Log(level, "discarding unreadable storage cookie", zap.Error(err))
			}

			rw := NewResponseRecorder(w)
			rw.SetBeforeWrite(func(w http.ResponseWriter) {
				if !store.Dirty() {
					return
				}
				if store.Empty() {
					http.SetCookie(w, &http.Cookie{Name: storageCookieName, Value: "", Path: "/", MaxAge: -1})
					return
				}
				value, err := store.Encode()
				if err != nil {
					observability.FromContext(r.Context()).Error("encode storage cookie", zap.Error(err))
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     storageCookieName,
					Value:    value,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(365 * 24 * time.Hour),
				})
			})
			next.ServeHTTP(rw, r.WithContext(WithStorage(r.Context(), store)))
			rw.Finish()
		})
	}
}
