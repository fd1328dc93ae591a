package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var ErrEmptyToken = errors.New("cannot hash an empty token")

// Hasher produces the keyed one-way hash under which refresh tokens are
// persisted. Only the hash ever touches the database, so a leaked table gives
// nothing to replay.
type Hasher struct {
	secret []byte
}

func NewHasher(secret []byte) *Hasher {
	return &Hasher{secret: secret}
}

// Hash returns base64url-no-padding(HMAC-SHA256(secret, token)).
func (h *Hasher) Hash(tok string) (string, error) {
	if tok == "" {
		return "", ErrEmptyToken
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
