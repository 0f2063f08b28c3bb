package http

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/banksync"
	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/provider"
)

const (
	msgReconnect   = "Bank connection expired, please reconnect your bank"
	msgUnavailable = "Bank provider unavailable, try again later"
	msgBadUpstream = "Bank provider returned an unexpected response"
	msgNotFound    = "Account not found"
	msgInternal    = "Internal server error"
)

// statusFor maps domain and provider errors onto a status and a message that
// is safe to show the user. Provider bodies and credentials never leave here.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrProviderAuth), errors.Is(err, user.ErrNoCredential):
		return http.StatusConflict, msgReconnect
	case errors.Is(err, provider.ErrProviderTimeout):
		return http.StatusGatewayTimeout, msgUnavailable
	case errors.Is(err, provider.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, provider.ErrProviderResponse):
		return http.StatusBadGateway, msgBadUpstream
	case errors.Is(err, account.ErrAccountNotFound), errors.Is(err, account.ErrForbidden):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, banksync.ErrMissingCredential):
		return http.StatusBadRequest, "accessCredential is required"
	case errors.Is(err, account.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, op string, err error) {
	status, message := statusFor(err)

	log := requestLogger(logger, r).WithError(err).WithFields(logrus.Fields{"op": op, "status": status})
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	writeError(w, status, message)
}
