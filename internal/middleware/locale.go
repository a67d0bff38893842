package middleware

import (
	"context"
	"net/http"
	"strings"

	"finitefield.org/zephyr-web/internal/i18n"
)

// Locale resolves the preferred language and stores it in the session and the `hl` cookie.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyLocaleFB, bundle.Fallback())
			r = r.WithContext(ctx)
			s := GetSession(r)
			w.Header().Add("Vary", "Accept-Language")

			switch {
			case r.URL.Query().Get("hl") != "":
				lang := bundle.Normalize(r.URL.Query().Get("hl"))
				if s.Locale != lang {
					s.Locale = lang
					s.MarkDirty()
				}
				http.SetCookie(w, &http.Cookie{Name: "hl", Value: lang, Path: "/", SameSite: http.SameSiteLaxMode})
			case s.Locale == "":
				if c, err := r.Cookie("hl"); err == nil && c.Value != "" {
					s.Locale = bundle.Normalize(c.Value)
				} else {
					s.Locale = bundle.Resolve(r.Header.Get("Accept-Language"))
				}
				s.MarkDirty()
			}

			if s.Locale != "" {
				w.Header().Set("Content-Language", s.Locale)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Lang returns the current language from the session, then the bundle fallback.
func Lang(r *http.Request) string {
	if s := GetSession(r); s != nil && s.Locale != "" {
		return s.Locale
	}
	if fb, ok := r.Context().Value(ctxKeyLocaleFB).(string); ok && fb != "" {
		return fb
	}
	return strings.ToLower(i18n.DefaultFallback)
}
