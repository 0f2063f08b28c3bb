package account

import (
	"context"
	"errors"
)

// Service contains the read-side business logic for accounts
type Service struct {
	repo Repository
}

// NewService creates a new account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetAccount retrieves an account by ID and verifies user ownership
func (s *Service) GetAccount(ctx context.Context, accountID, userID string) (*Account, error) {
	if accountID == "" || userID == "" {
		return nil, ErrInvalidInput
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	// Business rule: verify ownership
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	return account, nil
}

// ListAccountsByUserID retrieves all accounts for a specific user
func (s *Service) ListAccountsByUserID(ctx context.Context, userID string) ([]*Account, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	accounts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*Account{}
	}
	return accounts, nil
}
