package transaction

import (
	"context"
	"strconv"
	"strings"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ParseLimit turns a raw query value into a list size in [1, MaxListLimit].
// Missing or non-numeric input yields DefaultListLimit.
func ParseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultListLimit
	}
	return ClampLimit(n)
}

func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxListLimit {
		return MaxListLimit
	}
	return n
}

// Service serves read queries over stored transactions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRecent returns up to limit of the user's transactions, newest first.
func (s *Service) ListRecent(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	txs, err := s.repo.ListByUserID(ctx, userID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*Transaction{}
	}
	return txs, nil
}
