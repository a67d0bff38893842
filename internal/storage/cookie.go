package storage

import (
	"sync"

	"github.com/gorilla/securecookie"
)

// MaxCookieBytes bounds the signed cookie value, leaving room for attributes under the
// 4096-byte browser limit.
const MaxCookieBytes = 3800

// Cookie keeps every key in one signed cookie value. It only tracks state; the HTTP layer
// reads it from the request and writes it back when Dirty reports true.
type Cookie struct {
	codec *securecookie.SecureCookie
	name  string

	mu     sync.Mutex
	values map[string]string
	dirty  bool
}

// NewCookie returns an empty store for the cookie called name.
func NewCookie(codec *securecookie.SecureCookie, name string) *Cookie {
	return &Cookie{codec: codec, name: name, values: make(map[string]string)}
}

// ParseCookie restores a store from a cookie value. Missing, tampered and malformed values
// all yield an empty store together with the reason.
func ParseCookie(codec *securecookie.SecureCookie, name, raw string) (*Cookie, error) {
	c := NewCookie(codec, name)
	if raw == "" {
		return c, nil
	}
	values := make(map[string]string)
	if err := Decode(codec, name, raw, &values); err != nil {
		return c, err
	}
	c.values = values
	return c, nil
}

func (c *Cookie) GetItem(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// SetItem stores value, or returns ErrQuotaExceeded when the encoded cookie would exceed
// MaxCookieBytes. A rejected write leaves the store unchanged.
func (c *Cookie) SetItem(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]string, len(c.values)+1)
	for k, v := range c.values {
		next[k] = v
	}
	next[key] = value
	encoded, err := c.codec.Encode(c.name, next)
	if err != nil {
		return err
	}
	if len(encoded) > MaxCookieBytes {
		return ErrQuotaExceeded
	}
	c.values = next
	c.dirty = true
	return nil
}

func (c *Cookie) RemoveItem(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		delete(c.values, key)
		c.dirty = true
	}
}

// Dirty reports whether the store changed since it was parsed.
func (c *Cookie) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Empty reports whether the store holds no keys.
func (c *Cookie) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values) == 0
}

// Encode returns the signed cookie value.
func (c *Cookie) Encode() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codec.Encode(c.name, c.values)
}
