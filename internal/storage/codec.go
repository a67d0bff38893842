package storage

import (
	"errors"
	"fmt"

	"github.com/gorilla/securecookie"
)

// ErrInvalidSignature is returned when a signed value was tampered with or is malformed.
var ErrInvalidSignature = errors.New("storage: invalid signature")

// NewCodec returns the signing codec for the storefront cookies. Values are signed but not
// encrypted, and their lifetime is bounded by the cookie attributes rather than the codec.
func NewCodec(hashKey []byte) *securecookie.SecureCookie {
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(0)
	// MaxCookieBytes is enforced by the stores themselves.
	codec.MaxLength(0)
	return codec
}

// NewEphemeralCodec generates a random process-local key. Cookies signed with it do not
// survive a restart.
func NewEphemeralCodec() (*securecookie.SecureCookie, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return nil, errors.New("storage: generate cookie key")
	}
	return NewCodec(key), nil
}

// Decode verifies raw as the value of cookie name and unmarshals it into dst.
func Decode(codec *securecookie.SecureCookie, name, raw string, dst any) error {
	if err := codec.Decode(name, raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
