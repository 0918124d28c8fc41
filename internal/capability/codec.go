package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// MinSecretLength is the shortest secret NewCodec accepts
const MinSecretLength = 16

var ErrSecretTooShort = errors.New("capability secret must be at least 16 bytes")

// Codec derives order execution codes from a process-wide secret.
// Codes are recomputed on demand and never stored.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec keyed with secret
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key}, nil
}

// CreateCode returns the URL-safe execution code for an order
func (c *Codec) CreateCode(orderID, cardToken string) string {
	return base64.RawURLEncoding.EncodeToString(c.digest(orderID, cardToken))
}

// Verify reports whether code was produced for exactly this order and card token
func (c *Codec) Verify(orderID, code, cardToken string) bool {
	supplied, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return false
	}
	return hmac.Equal(supplied, c.digest(orderID, cardToken))
}

// digest length-prefixes each field so ("ab","c") and ("a","bc") differ
func (c *Codec) digest(orderID, cardToken string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	var size [8]byte
	for _, field := range []string{orderID, cardToken} {
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		mac.Write(size[:])
		mac.Write([]byte(field))
	}
	return mac.Sum(nil)
}
