package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/user"
)

type ProfileService interface {
	Profile(ctx context.Context, userID string) (*user.User, error)
}

type UserHandler struct {
	users  ProfileService
	logger logrus.FieldLogger
}

func NewUserHandler(users ProfileService, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type ProfileResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	CreatedAt         time.Time `json:"createdAt"`
	HasBankConnection bool      `json:"hasBankConnection"`
}

func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		requestLogger(h.logger, r).WithError(err).Error("Failed to load profile")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		ID:                u.ID,
		Email:             u.Email,
		CreatedAt:         u.CreatedAt,
		HasBankConnection: u.HasBankConnection,
	})
}

// ProviderConfigResponse is what a client needs to launch the provider's
// connect widget. No secrets.
type ProviderConfigResponse struct {
	ApplicationID string `json:"applicationId"`
	Environment   string `json:"environment"`
	ConnectURL    string `json:"connectUrl"`
}

type ProviderConfigHandler struct {
	config ProviderConfigResponse
}

func NewProviderConfigHandler(applicationID, environment, connectURL string) *ProviderConfigHandler {
	return &ProviderConfigHandler{config: ProviderConfigResponse{
		ApplicationID: applicationID,
		Environment:   environment,
		ConnectURL:    connectURL,
	}}
}

func (h *ProviderConfigHandler) HandleProviderConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.config)
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}
