package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/store"
)

var validate = validator.New()

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Mobile   string `json:"mobile" validate:"omitempty,min=7,max=15"`
}

// POST /api/register
func RegisterHandler(users store.UserStore, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "missing or invalid fields")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		u, err := users.Create(r.Context(), store.User{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Mobile:       req.Mobile,
		})
		if err != nil {
			if errors.Is(err, store.ErrExists) {
				writeError(w, http.StatusConflict, "user already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		u.PasswordHash = ""
		writeJSON(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/login
func LoginHandler(users store.UserStore, sessions *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "missing fields")
			return
		}

		u, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := sessions.Issue(u)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(sessions.TTL().Seconds()),
		})
		u.PasswordHash = ""
		writeJSON(w, http.StatusOK, u)
	}
}

// POST /api/logout
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

// GET /api/session
func SessionHandler(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		u, err := users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		u.PasswordHash = ""
		writeJSON(w, http.StatusOK, u)
	}
}
