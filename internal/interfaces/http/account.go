package http

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/banksync"
)

type AccountLister interface {
	ListAccountsByUserID(ctx context.Context, userID string) ([]*account.Account, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, userID, accountID string) (*banksync.Balance, error)
}

type AccountHandler struct {
	accounts AccountLister
	balances BalanceReader
	logger   logrus.FieldLogger
}

func NewAccountHandler(accounts AccountLister, balances BalanceReader, logger logrus.FieldLogger) *AccountHandler {
	return &AccountHandler{accounts: accounts, balances: balances, logger: logger}
}

// HandleListAccounts returns the stored snapshot of the user's accounts.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListAccountsByUserID(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.logger, "list_accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

type BalanceResponse struct {
	AccountID   string    `json:"accountId"`
	Balance     string    `json:"balance"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// HandleBalance reads the live balance from the provider. Nothing is persisted.
func (h *AccountHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "Account ID is required")
		return
	}

	balance, err := h.balances.Balance(r.Context(), userID, accountID)
	if err != nil {
		writeDomainError(w, r, h.logger, "balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID:   balance.AccountID,
		Balance:     balance.Balance.StringFixed(account.MoneyScale),
		LastUpdated: balance.LastUpdated,
	})
}
