package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SubjectAccess  = "access_token"
	SubjectRefresh = "refresh_token"

	claimMemberID = "memberId"

	AccessTTL  = 24 * time.Hour
	RefreshTTL = 48 * time.Hour
)

var (
	// ErrTokenExpired is returned for a well-formed, correctly signed token
	// past its expiry. Callers branch on it to trigger the refresh flow, so
	// it must never collapse into ErrTokenInvalid.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed, badly signed and unsupported tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// Codec signs and verifies access and refresh JWTs with a shared HS256
// secret. The two kinds are told apart by the subject claim; a refresh token
// carries no identity at all, so possession of a leaked one grants nothing
// without the matching stored hash.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// IssueAccess signs an access token embedding the member login id.
func (c *Codec) IssueAccess(memberID string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		claimMemberID: memberID,
		"sub":         SubjectAccess,
		"iat":         now.Unix(),
		"exp":         now.Add(AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// IssueRefresh signs a refresh token. It deliberately embeds no identity:
// the owning member is recovered through the hash stored on the member row.
func (c *Codec) IssueRefresh() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub": SubjectRefresh,
		"iat": now.Unix(),
		"exp": now.Add(RefreshTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Validate re-verifies signature and expiry, reporting ErrTokenExpired or
// ErrTokenInvalid.
func (c *Codec) Validate(raw string) error {
	_, err := c.parse(raw)
	return err
}

// Subject returns the token kind marker ("access_token" / "refresh_token").
func (c *Codec) Subject(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

// MemberID extracts the member login id from an access token.
func (c *Codec) MemberID(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", err
	}
	if sub, _ := claims["sub"].(string); sub != SubjectAccess {
		return "", fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	id, ok := claims[claimMemberID].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: member claim missing", ErrTokenInvalid)
	}
	return id, nil
}

func (c *Codec) parse(raw string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}
	t, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected sign method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
