package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed tokens whose subject is the username and whose
// "roles" claim lists granted authorities.
type Verifier struct {
	key    []byte
	leeway time.Duration
}

// NewVerifier takes the shared secret base64-encoded, as it is stored in config.
func NewVerifier(secretB64 string) (*Verifier, error) {
	key, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return nil, fmt.Errorf("auth: decode jwt secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("auth: empty jwt secret")
	}
	return &Verifier{key: key, leeway: 30 * time.Second}, nil
}

func (v *Verifier) Verify(raw string) (Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{Username: c.Subject, Roles: c.Roles, Token: raw}, nil
}

// Issue signs a token for username. Used by tests and local tooling only;
// token issuance belongs to the auth service.
func (v *Verifier) Issue(username string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.key)
}
