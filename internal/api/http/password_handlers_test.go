package http_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	api "github.com/passexam/passexam/internal/api/http"
	"github.com/passexam/passexam/internal/auth"
)

// captureMailer records the last message instead of delivering it.
type captureMailer struct {
	to, subject, html string
	sent              int
}

func (m *captureMailer) Send(_ context.Context, to, subject, html string) error {
	m.to, m.subject, m.html = to, subject, html
	m.sent++
	return nil
}

// tokenFromMail digs the reset token out of the mailed link.
func tokenFromMail(t *testing.T, html string) string {
	t.Helper()
	start := strings.Index(html, "token=")
	require.GreaterOrEqual(t, start, 0, "mail carries no reset link")
	rest := html[start+len("token="):]
	if end := strings.IndexAny(rest, `"&`); end >= 0 {
		rest = rest[:end]
	}
	token, err := url.QueryUnescape(rest)
	require.NoError(t, err)
	return token
}

func TestPasswordResetFlow(t *testing.T) {
	_, st, sessions := testEnv(t)
	resets := auth.NewResetTokens(time.Hour)
	mailer := &captureMailer{}

	r := chi.NewRouter()
	r.Post("/api/register", api.RegisterHandler(st, 4))
	r.Post("/api/login", api.LoginHandler(st, sessions))
	r.Post("/api/forgot-password", api.ForgotPasswordHandler(st, resets, mailer, "http://localhost:3000", testLogger()))
	r.Post("/api/reset-password", api.ResetPasswordHandler(st, resets, 4))

	rec := doJSON(t, r, "POST", "/api/register", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "first-pass",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, "POST", "/api/forgot-password", map[string]string{
		"email": "asha@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, mailer.sent)
	require.Equal(t, "asha@example.com", mailer.to)

	token := tokenFromMail(t, mailer.html)
	rec = doJSON(t, r, "POST", "/api/reset-password", map[string]string{
		"token": token, "password": "second-pass",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old password out, new password in.
	rec = doJSON(t, r, "POST", "/api/login", map[string]string{
		"email": "asha@example.com", "password": "first-pass",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, "POST", "/api/login", map[string]string{
		"email": "asha@example.com", "password": "second-pass",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Token is single use.
	rec = doJSON(t, r, "POST", "/api/reset-password", map[string]string{
		"token": token, "password": "third-pass",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	_, st, _ := testEnv(t)
	resets := auth.NewResetTokens(time.Hour)
	mailer := &captureMailer{}

	r := chi.NewRouter()
	r.Post("/api/forgot-password", api.ForgotPasswordHandler(st, resets, mailer, "http://localhost:3000", testLogger()))

	rec := doJSON(t, r, "POST", "/api/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, mailer.sent, "no mail for unknown accounts")
	require.Contains(t, rec.Body.String(), "If a user with that email exists")
}

func TestResetPasswordValidation(t *testing.T) {
	_, st, _ := testEnv(t)
	resets := auth.NewResetTokens(time.Hour)

	r := chi.NewRouter()
	r.Post("/api/reset-password", api.ResetPasswordHandler(st, resets, 4))

	rec := doJSON(t, r, "POST", "/api/reset-password", map[string]string{
		"token": "bogus", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, "POST", "/api/reset-password", map[string]string{
		"token": "whatever", "password": "abc",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
