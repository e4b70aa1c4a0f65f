package storefront

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "storefront"

var ErrInvalidSession = errors.New("invalid session token")

// SessionTokens signs the session cookie so a browser cannot pick another
// shopper's cart by guessing ids.
type SessionTokens struct {
	secret []byte
	now    func() time.Time
}

func NewSessionTokens(secret string) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), now: time.Now}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func (t *SessionTokens) New(sessionID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse returns the session id carried by a valid, unexpired token and when
// the token was issued.
func (t *SessionTokens) Parse(token string) (string, time.Time, error) {
	var c sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || parsed == nil || !parsed.Valid || c.Subject == "" || c.IssuedAt == nil {
		return "", time.Time{}, ErrInvalidSession
	}
	return c.Subject, c.IssuedAt.Time, nil
}
