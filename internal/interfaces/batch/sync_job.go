package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"truebalance/internal/domain/banksync"
)

// UserSyncer is the part of banksync.Service a sync job needs.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID string) (*banksync.Summary, error)
}

// UserSyncJob runs a full account and transaction sync for one user.
type UserSyncJob struct {
	userID string
	syncer UserSyncer
	logger logrus.FieldLogger
}

func NewUserSyncJob(userID string, syncer UserSyncer, logger logrus.FieldLogger) *UserSyncJob {
	return &UserSyncJob{userID: userID, syncer: syncer, logger: logger}
}

func (j *UserSyncJob) Execute(ctx context.Context) error {
	summary, err := j.syncer.SyncUser(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	j.logger.WithFields(logrus.Fields{
		"user_id":              j.userID,
		"accounts_found":       summary.Accounts.AccountsFound,
		"transactions_fetched": summary.Transactions.Fetched,
		"inserted":             summary.Transactions.Inserted,
	}).Info("User sync complete")
	return nil
}

func (j *UserSyncJob) UserID() string { return j.userID }

func (j *UserSyncJob) Description() string {
	return "sync for user " + j.userID
}

// SyncJobs builds one UserSyncJob per user id.
func SyncJobs(userIDs []string, syncer UserSyncer, logger logrus.FieldLogger) []Job {
	jobs := make([]Job, 0, len(userIDs))
	for _, id := range userIDs {
		jobs = append(jobs, NewUserSyncJob(id, syncer, logger))
	}
	return jobs
}
