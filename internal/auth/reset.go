package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResetTokens is the in-memory single-use password-reset token store.
// Tokens expire after the configured TTL and die with the process, which is
// fine for a single-instance deployment.
type ResetTokens struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]resetEntry
	now    func() time.Time
}

type resetEntry struct {
	email   string
	expires time.Time
}

func NewResetTokens(ttl time.Duration) *ResetTokens {
	return &ResetTokens{
		ttl:    ttl,
		tokens: map[string]resetEntry{},
		now:    time.Now,
	}
}

// Issue creates a fresh token bound to email.
func (rt *ResetTokens) Issue(email string) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := rt.now()
	for tok, e := range rt.tokens {
		if now.After(e.expires) {
			delete(rt.tokens, tok)
		}
	}
	token := uuid.NewString()
	rt.tokens[token] = resetEntry{email: email, expires: now.Add(rt.ttl)}
	return token
}

// Consume redeems a token, returning the bound email. A token can be
// consumed once; expired or unknown tokens fail.
func (rt *ResetTokens) Consume(token string) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	e, ok := rt.tokens[token]
	if !ok {
		return "", false
	}
	delete(rt.tokens, token)
	if rt.now().After(e.expires) {
		return "", false
	}
	return e.email, true
}
