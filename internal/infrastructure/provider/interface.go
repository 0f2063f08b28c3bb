package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// ClientInterface defines the calls the sync engine makes against the
// aggregation provider. credential is the user's provider access token.
type ClientInterface interface {
	ListAccounts(ctx context.Context, credential string) ([]RemoteAccount, error)
	ListTransactions(ctx context.Context, credential, accountID string) ([]RemoteTransaction, error)
	GetAccountBalance(ctx context.Context, credential, accountID string) (decimal.Decimal, error)
}
