// Package banksync reconciles provider account and transaction data into
// local storage.
package banksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/transaction"
	"truebalance/internal/infrastructure/provider"
)

// State is the phase a sync run is in.
type State string

const (
	StateIdle           State = "idle"
	StateFetchingRemote State = "fetching_remote"
	StateReconciling    State = "reconciling"
	StatePersisting     State = "persisting"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// AccountSyncResult summarizes one SyncAccounts run.
type AccountSyncResult struct {
	UserID        string `json:"userId"`
	AccountsFound int    `json:"accountsFound"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Skipped       int    `json:"skipped"`
	State         State  `json:"state"`
}

// TransactionSyncResult summarizes one SyncTransactions run.
type TransactionSyncResult struct {
	UserID         string `json:"userId"`
	AccountsSynced int    `json:"accountsSynced"`
	Fetched        int    `json:"fetched"`
	Inserted       int    `json:"inserted"`
	Skipped        int    `json:"skipped"`
	State          State  `json:"state"`
}

// Engine pulls remote data for one user at a time and writes only what is
// new. Accounts are processed sequentially; a failure stops the run but rows
// already written stay.
type Engine struct {
	provider     provider.ClientInterface
	accounts     account.Repository
	transactions transaction.Repository
	logger       logrus.FieldLogger
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for last-sync stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	client provider.ClientInterface,
	accounts account.Repository,
	transactions transaction.Repository,
	logger logrus.FieldLogger,
	opts ...Option,
) *Engine {
	e := &Engine{
		provider:     client,
		accounts:     accounts,
		transactions: transactions,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run tracks state transitions of a single invocation.
type run struct {
	logger logrus.FieldLogger
	state  State
}

func (r *run) transition(to State) {
	r.logger.WithFields(logrus.Fields{"sync.state": to, "sync.from": r.state}).Debug("Sync state changed")
	r.state = to
}

func (r *run) fail(err error) error {
	r.logger.WithError(err).WithField("sync.from", r.state).Warn("Sync failed")
	r.state = StateFailed
	return err
}

// SyncAccounts makes local accounts mirror the provider's list: unknown
// accounts are created, known ones get balance, active flag and last-sync
// refreshed. Nothing else changes and nothing is deleted.
func (e *Engine) SyncAccounts(ctx context.Context, userID, credential string) (*AccountSyncResult, error) {
	r := &run{
		logger: e.logger.WithFields(logrus.Fields{"user_id": userID, "sync.op": "accounts"}),
		state:  StateIdle,
	}
	result := &AccountSyncResult{UserID: userID}
	defer func() { result.State = r.state }()

	r.transition(StateFetchingRemote)
	remote, err := e.provider.ListAccounts(ctx, credential)
	if err != nil {
		return result, r.fail(fmt.Errorf("failed to list remote accounts: %w", err))
	}
	result.AccountsFound = len(remote)

	syncedAt := e.now().UTC()
	for _, ra := range remote {
		r.transition(StateReconciling)
		existing, err := e.accounts.GetByExternalID(ctx, userID, ra.ID)
		if err != nil && !errors.Is(err, account.ErrAccountNotFound) {
			return result, r.fail(fmt.Errorf("failed to look up account %s: %w", ra.ID, err))
		}

		r.transition(StatePersisting)
		if existing != nil {
			_, err := e.accounts.UpdateSyncState(ctx, existing.ID, account.SyncUpdate{
				Balance:  ra.Balance.Ledger,
				IsActive: ra.IsOpen(),
				SyncedAt: syncedAt,
			})
			if err != nil {
				return result, r.fail(fmt.Errorf("failed to update account %s: %w", existing.ID, err))
			}
			result.Updated++
			continue
		}

		_, err = e.accounts.Create(ctx, newAccountParams(userID, ra, syncedAt))
		switch {
		case errors.Is(err, account.ErrDuplicateAccount):
			// Lost a race with a concurrent sync; the other writer owns the row.
			result.Skipped++
		case err != nil:
			return result, r.fail(fmt.Errorf("failed to create account %s: %w", ra.ID, err))
		default:
			result.Created++
		}
	}

	r.transition(StateDone)
	r.logger.WithFields(logrus.Fields{
		"accounts_found": result.AccountsFound,
		"created":        result.Created,
		"updated":        result.Updated,
		"skipped":        result.Skipped,
	}).Info("Account sync complete")

	return result, nil
}

// SyncTransactions imports provider transactions not yet stored. With a
// non-empty accountID only that account is synced; it must belong to userID.
func (e *Engine) SyncTransactions(ctx context.Context, userID, credential, accountID string) (*TransactionSyncResult, error) {
	r := &run{
		logger: e.logger.WithFields(logrus.Fields{"user_id": userID, "sync.op": "transactions"}),
		state:  StateIdle,
	}
	result := &TransactionSyncResult{UserID: userID}
	defer func() { result.State = r.state }()

	targets, err := e.targets(ctx, userID, accountID)
	if err != nil {
		return result, r.fail(err)
	}

	for _, acc := range targets {
		if err := e.syncAccountTransactions(ctx, r, acc, credential, result); err != nil {
			return result, r.fail(err)
		}
		result.AccountsSynced++
	}

	r.transition(StateDone)
	r.logger.WithFields(logrus.Fields{
		"accounts_synced": result.AccountsSynced,
		"fetched":         result.Fetched,
		"inserted":        result.Inserted,
		"skipped":         result.Skipped,
	}).Info("Transaction sync complete")

	return result, nil
}

func (e *Engine) targets(ctx context.Context, userID, accountID string) ([]*account.Account, error) {
	if accountID == "" {
		accounts, err := e.accounts.ListByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		return accounts, nil
	}

	acc, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if acc.UserID != userID {
		return nil, account.ErrAccountNotFound
	}
	return []*account.Account{acc}, nil
}

func (e *Engine) syncAccountTransactions(ctx context.Context, r *run, acc *account.Account, credential string, result *TransactionSyncResult) error {
	r.transition(StateFetchingRemote)
	remote, err := e.provider.ListTransactions(ctx, credential, acc.ExternalID)
	if err != nil {
		return fmt.Errorf("failed to list remote transactions for account %s: %w", acc.ID, err)
	}
	result.Fetched += len(remote)

	r.transition(StateReconciling)
	known, err := e.transactions.ExternalIDsByAccount(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("failed to load known transactions for account %s: %w", acc.ID, err)
	}

	batch := make([]transaction.CreateParams, 0, len(remote))
	for _, rt := range remote {
		if _, seen := known[rt.ID]; seen {
			result.Skipped++
			continue
		}
		params, err := newTransactionParams(acc.ID, rt)
		if err != nil {
			return err
		}
		// Guards against the provider repeating an id within one response.
		known[rt.ID] = struct{}{}
		batch = append(batch, params)
	}

	if len(batch) == 0 {
		return nil
	}

	r.transition(StatePersisting)
	inserted, err := e.transactions.CreateBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to store transactions for account %s: %w", acc.ID, err)
	}
	result.Inserted += inserted
	result.Skipped += len(batch) - inserted

	r.logger.WithFields(logrus.Fields{
		"account_id": acc.ID,
		"fetched":    len(remote),
		"inserted":   inserted,
	}).Debug("Account transactions synced")
	return nil
}

func newAccountParams(userID string, ra provider.RemoteAccount, syncedAt time.Time) account.CreateParams {
	name := ra.Name
	if name == "" {
		name = ra.Institution.Name
	}
	if name == "" {
		name = ra.ID
	}
	return account.CreateParams{
		UserID:     userID,
		ExternalID: ra.ID,
		Name:       name,
		Type:       account.NormalizeType(ra.Type, ra.Subtype),
		Balance:    ra.Balance.Ledger,
		Currency:   account.NormalizeCurrency(ra.Currency),
		IsActive:   ra.IsOpen(),
		LastSyncAt: syncedAt,
	}
}

func newTransactionParams(accountID string, rt provider.RemoteTransaction) (transaction.CreateParams, error) {
	date, err := rt.ParsedDate()
	if err != nil {
		return transaction.CreateParams{}, fmt.Errorf("%w: transaction %s: %v", provider.ErrProviderResponse, rt.ID, err)
	}
	category := transaction.Categorize(rt.Description)
	return transaction.CreateParams{
		AccountID:   accountID,
		ExternalID:  rt.ID,
		Amount:      rt.Amount.Round(2),
		Description: rt.Description,
		Category:    &category,
		Date:        date,
		Type:        transaction.TypeFromProvider(rt.Type),
		Status:      transaction.StatusFromProvider(rt.Status),
	}, nil
}
