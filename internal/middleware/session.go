package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/storage"
)

const sessionCookieName = "ZEPHYR_SESSION"

// SessionData is the signed per-browser session.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// CookieOptions carries the attributes shared by the storefront cookies.
type CookieOptions struct {
	Codec  *securecookie.SecureCookie
	Secure bool
}

// Session loads or initializes a session and stores it in request context.
func Session(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := readSessionCookie(r, opts.Codec)
			if sd.ID == "" {
				sd.ID = ulid.Make().String()
				sd.CreatedAt = time.Now().UTC()
				sd.UpdatedAt = sd.CreatedAt
				sd.CSRFToken = newCSRFToken()
				sd.dirty = true
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, sd)
			ctx = observability.WithLogger(ctx, observability.FromContext(ctx).With(zap.String("session_id", sd.ID)))

			rw := NewResponseRecorder(w)
			// ensure cookie is set just before first write if needed
			rw.SetBeforeWrite(func(w http.ResponseWriter) {
				if sd.dirty || !fromCookie {
					writeSessionCookie(r.Context(), w, opts, sd)
				}
			})
			next.ServeHTTP(rw, r.WithContext(ctx))
			rw.Finish()
		})
	}
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

func readSessionCookie(r *http.Request, codec *securecookie.SecureCookie) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := storage.Decode(codec, sessionCookieName, c.Value, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func writeSessionCookie(ctx context.Context, w http.ResponseWriter, opts CookieOptions, sd *SessionData) {
	encoded, err := opts.Codec.Encode(sessionCookieName, sd)
	if err != nil {
		observability.FromContext(ctx).Error("encode session cookie", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
