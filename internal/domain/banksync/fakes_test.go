package banksync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/transaction"
	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/provider"
)

// MockProvider implements provider.ClientInterface
type MockProvider struct {
	ListAccountsFunc      func(ctx context.Context, credential string) ([]provider.RemoteAccount, error)
	ListTransactionsFunc  func(ctx context.Context, credential, accountID string) ([]provider.RemoteTransaction, error)
	GetAccountBalanceFunc func(ctx context.Context, credential, accountID string) (decimal.Decimal, error)

	transactionCalls []string
}

func (m *MockProvider) ListAccounts(ctx context.Context, credential string) ([]provider.RemoteAccount, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, credential)
	}
	return nil, nil
}

func (m *MockProvider) ListTransactions(ctx context.Context, credential, accountID string) ([]provider.RemoteTransaction, error) {
	m.transactionCalls = append(m.transactionCalls, accountID)
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, credential, accountID)
	}
	return nil, nil
}

func (m *MockProvider) GetAccountBalance(ctx context.Context, credential, accountID string) (decimal.Decimal, error) {
	if m.GetAccountBalanceFunc != nil {
		return m.GetAccountBalanceFunc(ctx, credential, accountID)
	}
	return decimal.Zero, nil
}

// memAccounts is an in-memory account.Repository enforcing the
// (user, external id) uniqueness the database provides.
type memAccounts struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*account.Account
	order  []string
	failOn string // external id whose Create fails
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]*account.Account{}}
}

func (r *memAccounts) Create(ctx context.Context, p account.CreateParams) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ExternalID == r.failOn {
		return nil, fmt.Errorf("insert failed")
	}
	for _, a := range r.byID {
		if a.UserID == p.UserID && a.ExternalID == p.ExternalID {
			return nil, account.ErrDuplicateAccount
		}
	}
	r.seq++
	synced := p.LastSyncAt
	a := &account.Account{
		ID:         fmt.Sprintf("acct-%d", r.seq),
		UserID:     p.UserID,
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Type:       p.Type,
		Balance:    p.Balance,
		Currency:   p.Currency,
		IsActive:   p.IsActive,
		LastSyncAt: &synced,
	}
	r.byID[a.ID] = a
	r.order = append(r.order, a.ID)
	return copyAccount(a), nil
}

func (r *memAccounts) GetByID(ctx context.Context, id string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (r *memAccounts) GetByExternalID(ctx context.Context, userID, externalID string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.UserID == userID && a.ExternalID == externalID {
			return copyAccount(a), nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (r *memAccounts) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*account.Account
	for _, id := range r.order {
		if a := r.byID[id]; a.UserID == userID {
			out = append(out, copyAccount(a))
		}
	}
	return out, nil
}

func (r *memAccounts) UpdateSyncState(ctx context.Context, id string, u account.SyncUpdate) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	synced := u.SyncedAt
	a.Balance = u.Balance
	a.IsActive = u.IsActive
	a.LastSyncAt = &synced
	return copyAccount(a), nil
}

func (r *memAccounts) snapshot(userID string) []account.Account {
	list, _ := r.ListByUserID(context.Background(), userID)
	out := make([]account.Account, 0, len(list))
	for _, a := range list {
		out = append(out, *a)
	}
	return out
}

func copyAccount(a *account.Account) *account.Account {
	c := *a
	return &c
}

// memTransactions is an in-memory transaction.Repository with the
// (account, external id) uniqueness of the real table.
type memTransactions struct {
	mu       sync.Mutex
	seq      int
	rows     []transaction.Transaction
	batches  int
	failWith error
}

func (r *memTransactions) ExternalIDsByAccount(ctx context.Context, accountID string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]struct{}{}
	for _, row := range r.rows {
		if row.AccountID == accountID {
			ids[row.ExternalID] = struct{}{}
		}
	}
	return ids, nil
}

func (r *memTransactions) CreateBatch(ctx context.Context, params []transaction.CreateParams) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	r.batches++

	inserted := 0
	for _, p := range params {
		if r.exists(p.AccountID, p.ExternalID) {
			continue
		}
		r.seq++
		r.rows = append(r.rows, transaction.Transaction{
			ID:          fmt.Sprintf("tx-%d", r.seq),
			AccountID:   p.AccountID,
			ExternalID:  p.ExternalID,
			Amount:      p.Amount,
			Description: p.Description,
			Category:    p.Category,
			Date:        p.Date,
			Type:        p.Type,
			Status:      p.Status,
		})
		inserted++
	}
	return inserted, nil
}

func (r *memTransactions) exists(accountID, externalID string) bool {
	for _, row := range r.rows {
		if row.AccountID == accountID && row.ExternalID == externalID {
			return true
		}
	}
	return false
}

func (r *memTransactions) ListByUserID(ctx context.Context, userID string, limit int) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (r *memTransactions) byAccount(accountID string) []transaction.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transaction.Transaction
	for _, row := range r.rows {
		if row.AccountID == accountID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// memCredentials implements user.CredentialStore
type memCredentials struct {
	values  map[string]string
	cleared []string
}

func newMemCredentials() *memCredentials {
	return &memCredentials{values: map[string]string{}}
}

func (c *memCredentials) SetProviderCredential(ctx context.Context, userID, credential string) error {
	c.values[userID] = credential
	return nil
}

func (c *memCredentials) GetProviderCredential(ctx context.Context, userID string) (string, error) {
	v, ok := c.values[userID]
	if !ok || v == "" {
		return "", user.ErrNoCredential
	}
	return v, nil
}

func (c *memCredentials) ClearProviderCredential(ctx context.Context, userID string) error {
	delete(c.values, userID)
	c.cleared = append(c.cleared, userID)
	return nil
}

// recordingNotifier implements Notifier
type recordingNotifier struct {
	reconnect []string
	completed map[string]int
}

func (n *recordingNotifier) SendReconnectRequired(ctx context.Context, userID string) {
	n.reconnect = append(n.reconnect, userID)
}

func (n *recordingNotifier) SendSyncComplete(ctx context.Context, userID string, inserted int) {
	if n.completed == nil {
		n.completed = map[string]int{}
	}
	n.completed[userID] += inserted
}
