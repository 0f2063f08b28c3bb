package http

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/transaction"
)

type TransactionLister interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]*transaction.Transaction, error)
}

type TransactionHandler struct {
	transactions TransactionLister
	logger       logrus.FieldLogger
}

func NewTransactionHandler(transactions TransactionLister, logger logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

// HandleListTransactions returns the newest transactions across the user's
// accounts. ?limit is clamped to [1, 500] and defaults to 50.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := transaction.ParseLimit(r.URL.Query().Get("limit"))

	txs, err := h.transactions.ListRecent(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, r, h.logger, "list_transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, txs)
}
