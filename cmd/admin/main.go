package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/account"
	"truebalance/internal/domain/banksync"
	"truebalance/internal/domain/notification"
	"truebalance/internal/domain/user"
	"truebalance/internal/infrastructure/crypto"
	"truebalance/internal/infrastructure/firebase"
	"truebalance/internal/infrastructure/postgres"
	"truebalance/internal/infrastructure/provider"
	"truebalance/internal/infrastructure/secrets"
	"truebalance/internal/interfaces/batch"
	"truebalance/internal/shared/auth"
	"truebalance/internal/shared/config"
	"truebalance/internal/shared/logging"
	"truebalance/internal/shared/messages"
)

const usage = `TrueBalance Admin CLI - Management commands for the TrueBalance API

Usage:
  admin <command> [options]

Commands:
  migrate          Apply database migrations (or roll back with --down)
  sync             Sync accounts and transactions from the bank provider
  prune-sessions   Delete expired login sessions

Examples:
  # Apply all pending migrations
  admin migrate

  # Roll back the last migration
  admin migrate --down=1

  # Sync one user
  admin sync --user-id=7c9e6679-7425-40de-944b-e07fc1f90ae7

  # Sync every user with a bank connection, 8 at a time
  admin sync --all --workers=8 --timeout=1h

  # Remove expired sessions
  admin prune-sessions
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "sync":
		err = runSync(os.Args[2:])
	case "prune-sessions":
		err = runPruneSessions(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs: config, a logger and an open database.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *postgres.DB
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := postgres.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database")

	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	down := fs.Int("down", 0, "Roll back this many migrations instead of applying")

	fs.Usage = func() {
		fmt.Println("Usage: admin migrate [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *down < 0 {
		return errors.New("--down must not be negative")
	}

	e, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer e.db.Close()

	if *down > 0 {
		return postgres.MigrateDown(e.db, *down, e.logger)
	}
	return postgres.Migrate(e.db, e.logger)
}

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) to sync (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Sync every user with a stored bank connection")
	workers := fs.Int("workers", 0, "Number of concurrent workers (default SYNC_WORKERS)")
	timeout := fs.Duration("timeout", 30*time.Minute, "Timeout for the whole run (e.g. 5m, 1h)")
	jobTimeout := fs.Duration("job-timeout", 2*time.Minute, "Timeout for a single user's sync")
	jobDelay := fs.Duration("job-delay", 0, "Pause between jobs on each worker")

	fs.Usage = func() {
		fmt.Println("Usage: admin sync [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin sync --user-id=<id>")
		fmt.Println("  admin sync --user-id=<id>,<id>")
		fmt.Println("  admin sync --all --workers=8 --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userIDStr == "" && !*allUsers {
		fs.Usage()
		return errors.New("must specify --user-id or --all")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.db.Close()

	userRepo, syncService, err := newSyncService(ctx, e)
	if err != nil {
		return err
	}

	userIDs := parseUserIDs(*userIDStr)
	if *allUsers {
		users, err := userRepo.ListWithCredential(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		userIDs = userIDs[:0]
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
		e.logger.WithField("users", len(userIDs)).Info("Found users with bank connections")
	}

	if len(userIDs) == 0 {
		e.logger.Info("No users to process")
		return nil
	}

	workerCount := *workers
	if workerCount <= 0 {
		workerCount = e.cfg.Sync.Workers
	}

	start := time.Now()
	pool := batch.NewWorkerPool(workerCount, *jobTimeout, *jobDelay, e.logger)
	report := pool.Run(ctx, batch.SyncJobs(userIDs, syncService, e.logger))

	printReport(report, time.Since(start))
	if report.Failed > 0 || report.Skipped > 0 {
		return fmt.Errorf("%d of %d user syncs did not complete", report.Failed+report.Skipped, report.Total)
	}
	return nil
}

// newSyncService wires the sync stack the same way the API does.
func newSyncService(ctx context.Context, e *env) (*postgres.UserRepository, *banksync.Service, error) {
	secret, err := secrets.Resolve(ctx, e.cfg.Encryption.Secret, e.cfg.Encryption.SecretID, e.cfg.Encryption.AWSRegion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve encryption secret: %w", err)
	}
	encryptor, err := crypto.NewEncryptorFromSecret(secret, e.cfg.IsProduction())
	if err != nil {
		return nil, nil, err
	}

	client, err := provider.NewClient(provider.Options{
		BaseURL:  e.cfg.Provider.BaseURL,
		Timeout:  e.cfg.Provider.Timeout,
		CertFile: e.cfg.Provider.CertificatePath,
		KeyFile:  e.cfg.Provider.PrivateKeyPath,
	})
	if err != nil {
		return nil, nil, err
	}

	msgs, err := messages.Load(e.cfg.Firebase.MessagesFile)
	if err != nil {
		return nil, nil, err
	}
	var messenger notification.Messenger
	if e.cfg.Firebase.CredentialsFile != "" {
		fb, err := firebase.NewClient(ctx, e.cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		messenger = fb
	}

	userRepo := postgres.NewUserRepository(e.db, encryptor, e.logger)
	accountRepo := postgres.NewAccountRepository(e.db)
	transactionRepo := postgres.NewTransactionRepository(e.db)

	engine := banksync.NewEngine(client, accountRepo, transactionRepo, e.logger)
	svc := banksync.NewService(
		engine,
		client,
		userRepo,
		account.NewService(accountRepo),
		notification.NewService(messenger, msgs, e.logger),
		e.logger,
	)
	return userRepo, svc, nil
}

func runPruneSessions(args []string) error {
	fs := flag.NewFlagSet("prune-sessions", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: admin prune-sessions")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.db.Close()

	users := postgres.NewUserRepository(e.db, nil, e.logger)
	svc := user.NewService(users, postgres.NewSessionRepository(e.db), auth.NewJWT(e.cfg.Auth.SessionSecret, e.cfg.Auth.SessionTTL), e.logger)

	n, err := svc.PruneSessions(ctx, time.Now())
	if err != nil {
		return err
	}
	e.logger.WithField("deleted", n).Info("Expired sessions pruned")
	return nil
}

func parseUserIDs(s string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		ids = append(ids, p)
	}
	return ids
}

func printReport(report batch.Report, elapsed time.Duration) {
	fmt.Printf("\n=== Sync finished in %v ===\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Users:      %d\n", report.Total)
	fmt.Printf("  Succeeded:  %d\n", report.Succeeded)
	fmt.Printf("  Failed:     %d\n", report.Failed)
	fmt.Printf("  Skipped:    %d\n", report.Skipped)

	if len(report.Failures) == 0 {
		return
	}

	ids := make([]string, 0, len(report.Failures))
	for id := range report.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		if i >= 5 {
			fmt.Printf("    ... and %d more failures\n", len(ids)-5)
			break
		}
		fmt.Printf("    - %s: %v\n", id, report.Failures[id])
	}
}
