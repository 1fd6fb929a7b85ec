package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/passexam/passexam/internal/store"
)

// SessionCookie is the cookie the signed session token travels in.
const SessionCookie = "passexam_session"

var ErrInvalidSession = errors.New("invalid session")

// Session is the typed payload carried in the session token. Anything that
// fails to parse and verify against it is rejected at the boundary with
// ErrInvalidSession rather than leaking downstream.
type Session struct {
	UserID int    `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies HMAC-signed session tokens.
type Service struct {
	hmac []byte
	ttl  time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{hmac: []byte(secret), ttl: ttl}
}

func (s *Service) TTL() time.Duration { return s.ttl }

func (s *Service) Issue(u store.User) (string, error) {
	now := time.Now()
	claims := &Session{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "passexam",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.hmac)
}

func (s *Service) Parse(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Session{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	sess, ok := token.Claims.(*Session)
	if !ok || sess.UserID == 0 {
		return nil, ErrInvalidSession
	}
	return sess, nil
}
