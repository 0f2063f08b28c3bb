package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/banksync"
	"truebalance/internal/domain/notification"
	"truebalance/internal/domain/transaction"
	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/crypto"
	"truebalance/internal/infrastructure/firebase"
	"truebalance/internal/infrastructure/postgres"
	"truebalance/internal/infrastructure/provider"
	"truebalance/internal/infrastructure/secrets"
	httphandlers "truebalance/internal/interfaces/http"
	"truebalance/internal/shared/auth"
	"truebalance/internal/shared/config"
	"truebalance/internal/shared/messages"
	"truebalance/internal/shared/middleware"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler           *httphandlers.AuthHandler
	UserHandler           *httphandlers.UserHandler
	ProviderConfigHandler *httphandlers.ProviderConfigHandler
	SyncHandler           *httphandlers.SyncHandler
	AccountHandler        *httphandlers.AccountHandler
	TransactionHandler    *httphandlers.TransactionHandler

	// Auth
	JWT      *auth.JWT
	Sessions user.SessionRepository

	RateLimiter *middleware.RateLimiter
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Dependencies, error) {
	secret, err := secrets.Resolve(ctx, cfg.Encryption.Secret, cfg.Encryption.SecretID, cfg.Encryption.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption secret: %w", err)
	}
	encryptor, err := crypto.NewEncryptorFromSecret(secret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	if crypto.IsPlaceholder(secret) {
		logger.Warn("Using a placeholder credential encryption secret; set TELLER_TOKEN_KEY before going to production")
	}

	providerClient, err := provider.NewClient(provider.Options{
		BaseURL:  cfg.Provider.BaseURL,
		Timeout:  cfg.Provider.Timeout,
		CertFile: cfg.Provider.CertificatePath,
		KeyFile:  cfg.Provider.PrivateKeyPath,
	})
	if err != nil {
		return nil, err
	}

	db, err := postgres.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db, encryptor, logger)
	sessionRepo := postgres.NewSessionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	// Domain services
	jwt := auth.NewJWT(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	userService := user.NewService(userRepo, sessionRepo, jwt, logger)
	accountService := account.NewService(accountRepo)
	transactionService := transaction.NewService(transactionRepo)

	notifier, err := newNotifier(ctx, cfg.Firebase, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	engine := banksync.NewEngine(providerClient, accountRepo, transactionRepo, logger)
	syncService := banksync.NewService(engine, providerClient, userRepo, accountService, notifier, logger)

	return &Dependencies{
		DB:                    db,
		AuthHandler:           httphandlers.NewAuthHandler(userService, logger),
		UserHandler:           httphandlers.NewUserHandler(userService, logger),
		ProviderConfigHandler: httphandlers.NewProviderConfigHandler(cfg.Provider.ApplicationID, cfg.Provider.Environment, cfg.Provider.ConnectURL),
		SyncHandler:           httphandlers.NewSyncHandler(syncService, logger),
		AccountHandler:        httphandlers.NewAccountHandler(accountService, syncService, logger),
		TransactionHandler:    httphandlers.NewTransactionHandler(transactionService, logger),
		JWT:                   jwt,
		Sessions:              sessionRepo,
		RateLimiter:           middleware.NewRateLimiter(cfg.RateLimit.TrustedProxies),
	}, nil
}

// newNotifier builds the push notifier. Without Firebase credentials it
// returns a service that drops every notification.
func newNotifier(ctx context.Context, cfg config.FirebaseConfig, logger logrus.FieldLogger) (*notification.Service, error) {
	msgs, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		return nil, err
	}

	var messenger notification.Messenger
	if cfg.CredentialsFile != "" {
		fb, err := firebase.NewClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		messenger = fb
		logger.Info("Firebase push notifications enabled")
	} else {
		logger.Info("Firebase credentials not set, push notifications disabled")
	}

	return notification.NewService(messenger, msgs, logger), nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
