package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/zephyr-web/internal/storage"
)

func testOptions() CookieOptions {
	return CookieOptions{Codec: storage.NewCodec([]byte("middleware-test-key"))}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLocalStorageWritesCookieWhenDirty(t *testing.T) {
	opts := testOptions()
	h := LocalStorage(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, StorageFromContext(r.Context()).SetItem("cart", "[]"))
		_, _ = io.WriteString(w, "ok")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := findCookie(rec, storageCookieName)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)

	restored, err := storage.ParseCookie(opts.Codec, storageCookieName, c.Value)
	require.NoError(t, err)
	v, ok := restored.GetItem("cart")
	require.True(t, ok)
	require.Equal(t, "[]", v)
}

func TestLocalStorageLeavesCleanStoreAlone(t *testing.T) {
	h := LocalStorage(testOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = StorageFromContext(r.Context()).GetItem("cart")
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Nil(t, findCookie(rec, storageCookieName))
}

func TestLocalStorageIgnoresForeignSignature(t *testing.T) {
	other := storage.NewCookie(storage.NewCodec([]byte("someone-else")), storageCookieName)
	require.NoError(t, other.SetItem("cart", `[{"id":1}]`))
	raw, err := other.Encode()
	require.NoError(t, err)

	var seen bool
	h := LocalStorage(testOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = StorageFromContext(r.Context()).GetItem("cart")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: storageCookieName, Value: raw})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, seen)
}

func TestLocalStorageExpiresEmptiedStore(t *testing.T) {
	opts := testOptions()
	seed := storage.NewCookie(opts.Codec, storageCookieName)
	require.NoError(t, seed.SetItem("cart", "[]"))
	raw, err := seed.Encode()
	require.NoError(t, err)

	h := LocalStorage(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		StorageFromContext(r.Context()).RemoveItem("cart")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: storageCookieName, Value: raw})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	c := findCookie(rec, storageCookieName)
	require.NotNil(t, c, "handlers that never write still get the cookie through Finish")
	require.Negative(t, c.MaxAge)
}

func TestSessionIssuesCSRFToken(t *testing.T) {
	opts := testOptions()
	var token string
	h := Session(opts)(CSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFToken(r)
		_, _ = io.WriteString(w, "ok")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, token)
	session := findCookie(rec, sessionCookieName)
	require.NotNil(t, session)
	csrf := findCookie(rec, csrfCookieName)
	require.NotNil(t, csrf)
	require.Equal(t, token, csrf.Value)

	post := httptest.NewRequest(http.MethodPost, "/", nil)
	post.AddCookie(session)
	post.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	require.Equal(t, http.StatusForbidden, rec.Code, "missing header")

	post = httptest.NewRequest(http.MethodPost, "/", nil)
	post.Header.Set(csrfHeaderName, token)
	post.AddCookie(session)
	post.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	require.Equal(t, http.StatusOK, rec.Code)
}
