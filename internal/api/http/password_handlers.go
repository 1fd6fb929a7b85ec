package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/mail"
	"github.com/passexam/passexam/internal/store"
)

type forgotPasswordReq struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/forgot-password
//
// The response is the same whether or not the address is registered, so the
// endpoint cannot be used to enumerate accounts.
func ForgotPasswordHandler(users store.UserStore, resets *auth.ResetTokens, mailer mail.Mailer, baseURL string, log logrus.FieldLogger) http.HandlerFunc {
	const reply = "If a user with that email exists, a reset link has been sent."
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}

		if _, err := users.GetByEmail(r.Context(), req.Email); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.WithField("email", req.Email).Info("password reset requested for unknown email")
				writeJSON(w, http.StatusOK, map[string]string{"message": reply})
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token := resets.Issue(req.Email)
		link := fmt.Sprintf("%s/reset-password?token=%s", baseURL, url.QueryEscape(token))
		html := fmt.Sprintf(`<h1>Password Reset Request</h1>
<p>A password reset was requested for your account.</p>
<p><a href=%q target="_blank">Reset Password</a></p>
<p>If you did not request a reset, ignore this email.</p>`, link)

		if err := mailer.Send(r.Context(), req.Email, "Your Password Reset Link for PassExam", html); err != nil {
			log.WithError(err).WithField("email", req.Email).Error("password reset mail failed")
			writeError(w, http.StatusInternalServerError, "failed to send password reset email")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": reply})
	}
}

type resetPasswordReq struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/reset-password
func ResetPasswordHandler(users store.UserStore, resets *auth.ResetTokens, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "token and new password are required")
			return
		}

		email, ok := resets.Consume(req.Token)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid or expired reset token")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := users.UpdatePassword(r.Context(), email, string(hash)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
	}
}
