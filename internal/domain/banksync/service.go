package banksync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/provider"
)

var (
	syncTracer      = otel.Tracer("truebalance/banksync")
	syncMeter       = otel.Meter("truebalance/banksync")
	syncRuns, _     = syncMeter.Int64Counter("sync.runs", metric.WithDescription("Sync runs by operation and final state"))
	syncDuration, _ = syncMeter.Float64Histogram("sync.duration", metric.WithDescription("Sync run duration in seconds"), metric.WithUnit("s"))
)

// ErrMissingCredential is returned by Connect when no access credential is given.
var ErrMissingCredential = errors.New("access credential is required")

// Notifier is the subset of notification.Service used after a sync.
type Notifier interface {
	SendReconnectRequired(ctx context.Context, userID string)
	SendSyncComplete(ctx context.Context, userID string, inserted int)
}

// Summary is the combined outcome of an account and a transaction pass.
type Summary struct {
	Accounts     *AccountSyncResult
	Transactions *TransactionSyncResult
}

// Balance is a live balance read straight from the provider.
type Balance struct {
	AccountID   string
	Balance     decimal.Decimal
	LastUpdated time.Time
}

// Service orchestrates connect, resync and live balance reads around the Engine.
type Service struct {
	engine      *Engine
	provider    provider.ClientInterface
	credentials user.CredentialStore
	accounts    *account.Service
	notifier    Notifier
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewService(
	engine *Engine,
	client provider.ClientInterface,
	credentials user.CredentialStore,
	accounts *account.Service,
	notifier Notifier,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		engine:      engine,
		provider:    client,
		credentials: credentials,
		accounts:    accounts,
		notifier:    notifier,
		logger:      logger,
		now:         engine.now,
	}
}

// Connect stores a freshly issued access credential and runs a full sync with it.
func (s *Service) Connect(ctx context.Context, userID, credential string) (*Summary, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingCredential
	}

	if err := s.credentials.SetProviderCredential(ctx, userID, credential); err != nil {
		return nil, fmt.Errorf("failed to store provider credential: %w", err)
	}

	return s.sync(ctx, "connect", userID, credential, "")
}

// Resync runs a sync with the stored credential. accountID optionally scopes
// the transaction pass to one account.
func (s *Service) Resync(ctx context.Context, userID, accountID string) (*Summary, error) {
	credential, err := s.credentials.GetProviderCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.sync(ctx, "resync", userID, credential, accountID)
}

// SyncUser is Resync over all accounts. Used by the bulk admin sync.
func (s *Service) SyncUser(ctx context.Context, userID string) (*Summary, error) {
	return s.Resync(ctx, userID, "")
}

func (s *Service) sync(ctx context.Context, op, userID, credential, accountID string) (summary *Summary, err error) {
	ctx, span := syncTracer.Start(ctx, "banksync."+op,
		trace.WithAttributes(
			attribute.String("sync.user_id", userID),
			attribute.String("sync.account_id", accountID),
		),
	)
	defer span.End()

	start := time.Now()
	summary = &Summary{}
	defer func() {
		state := StateDone
		if err != nil {
			state = StateFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("state", string(state)))
		syncRuns.Add(ctx, 1, attrs)
		syncDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	summary.Accounts, err = s.engine.SyncAccounts(ctx, userID, credential)
	if err != nil {
		return summary, s.handleProviderError(ctx, userID, err)
	}

	summary.Transactions, err = s.engine.SyncTransactions(ctx, userID, credential, accountID)
	if err != nil {
		return summary, s.handleProviderError(ctx, userID, err)
	}

	span.SetAttributes(
		attribute.Int("sync.accounts_found", summary.Accounts.AccountsFound),
		attribute.Int("sync.transactions_inserted", summary.Transactions.Inserted),
	)
	if s.notifier != nil {
		s.notifier.SendSyncComplete(ctx, userID, summary.Transactions.Inserted)
	}
	return summary, nil
}

// Balance reads the live provider balance of one of the user's accounts.
func (s *Service) Balance(ctx context.Context, userID, accountID string) (*Balance, error) {
	acc, err := s.accounts.GetAccount(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	credential, err := s.credentials.GetProviderCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, err := s.provider.GetAccountBalance(ctx, credential, acc.ExternalID)
	if err != nil {
		return nil, s.handleProviderError(ctx, userID, fmt.Errorf("failed to get balance for account %s: %w", acc.ID, err))
	}

	return &Balance{
		AccountID:   acc.ID,
		Balance:     balance,
		LastUpdated: s.now().UTC(),
	}, nil
}

// handleProviderError drops a credential the provider has rejected so the
// user is asked to reconnect. err is returned unchanged.
func (s *Service) handleProviderError(ctx context.Context, userID string, err error) error {
	if !errors.Is(err, provider.ErrProviderAuth) {
		return err
	}

	log := s.logger.WithField("user_id", userID)
	log.WithError(err).Warn("Provider rejected credential, clearing it")

	if clearErr := s.credentials.ClearProviderCredential(ctx, userID); clearErr != nil {
		log.WithError(clearErr).Error("Failed to clear provider credential")
		return err
	}
	if s.notifier != nil {
		s.notifier.SendReconnectRequired(ctx, userID)
	}
	return err
}
