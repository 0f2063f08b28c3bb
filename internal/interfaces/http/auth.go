package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/user"
	"truebalance/internal/shared/auth"
	"truebalance/internal/shared/middleware"
)

// AuthService is the part of user.Service the auth endpoints need.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*user.AuthResult, error)
	Login(ctx context.Context, email, password string) (*user.AuthResult, error)
	Logout(ctx context.Context, tokenHash string) error
}

type AuthHandler struct {
	auth   AuthService
	logger logrus.FieldLogger
}

func NewAuthHandler(auth AuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthResponse struct {
	User      UserSummary `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toAuthResponse(res *user.AuthResult) AuthResponse {
	return AuthResponse{
		User:      UserSummary{ID: res.User.ID, Email: res.User.Email},
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return req, false
	}
	return req, true
}

// HandleRegister creates an account and returns a session token.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toAuthResponse(res))
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, user.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address")
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
	default:
		requestLogger(h.logger, r).WithError(err).Error("Registration failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toAuthResponse(res))
	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		requestLogger(h.logger, r).WithError(err).Error("Login failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// HandleLogout deletes the session behind the presented token.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	tokenHash, ok := middleware.TokenHashFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	if err := h.auth.Logout(r.Context(), tokenHash); err != nil {
		requestLogger(h.logger, r).WithError(err).Error("Logout failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
