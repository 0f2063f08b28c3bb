package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/banksync"
)

// SyncService is the part of banksync.Service behind connect and sync.
type SyncService interface {
	Connect(ctx context.Context, userID, credential string) (*banksync.Summary, error)
	Resync(ctx context.Context, userID, accountID string) (*banksync.Summary, error)
}

type SyncHandler struct {
	sync   SyncService
	logger logrus.FieldLogger
}

func NewSyncHandler(sync SyncService, logger logrus.FieldLogger) *SyncHandler {
	return &SyncHandler{sync: sync, logger: logger}
}

type ConnectRequest struct {
	AccessCredential string `json:"accessCredential"`
}

type SyncRequest struct {
	AccountID string `json:"accountId"`
}

type SyncResponse struct {
	Success      bool                            `json:"success"`
	Accounts     *banksync.AccountSyncResult     `json:"accounts"`
	Transactions *banksync.TransactionSyncResult `json:"transactions"`
}

func toSyncResponse(s *banksync.Summary) SyncResponse {
	return SyncResponse{Success: true, Accounts: s.Accounts, Transactions: s.Transactions}
}

// HandleConnect stores the access credential a client obtained from the
// provider's connect flow and runs the first sync.
func (h *SyncHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ConnectRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.sync.Connect(r.Context(), userID, req.AccessCredential)
	if err != nil {
		writeDomainError(w, r, h.logger, "connect", err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(summary))
}

// HandleSync re-runs a sync with the stored credential, optionally scoped to
// one account.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req SyncRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.sync.Resync(r.Context(), userID, strings.TrimSpace(req.AccountID))
	if err != nil {
		writeDomainError(w, r, h.logger, "sync", err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(summary))
}
