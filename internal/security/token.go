package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager signs and verifies the admin session token. The token
// carries the session id so a revoked session invalidates the token
// before its own expiry.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

type Claims struct {
	UserID    string
	Username  string
	Role      string
	SessionID string
}

func (tm *TokenManager) Issue(u *User, sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(tm.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"role":     u.Role,
		"sid":      sessionID,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	})
	signed, err := tok.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (tm *TokenManager) Verify(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	c := &Claims{}
	c.UserID, _ = mc["sub"].(string)
	c.Username, _ = mc["username"].(string)
	c.Role, _ = mc["role"].(string)
	c.SessionID, _ = mc["sid"].(string)
	if c.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
