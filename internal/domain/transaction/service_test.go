package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	ExternalIDsByAccountFunc func(ctx context.Context, accountID string) (map[string]struct{}, error)
	CreateBatchFunc          func(ctx context.Context, params []CreateParams) (int, error)
	ListByUserIDFunc         func(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}

func (m *mockRepository) ExternalIDsByAccount(ctx context.Context, accountID string) (map[string]struct{}, error) {
	if m.ExternalIDsByAccountFunc != nil {
		return m.ExternalIDsByAccountFunc(ctx, accountID)
	}
	return map[string]struct{}{}, nil
}

func (m *mockRepository) CreateBatch(ctx context.Context, params []CreateParams) (int, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, params)
	}
	return len(params), nil
}

func (m *mockRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit)
	}
	return nil, nil
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 50},
		{"abc", 50},
		{"0", 1},
		{"-5", 1},
		{"1", 1},
		{"25", 25},
		{"500", 500},
		{"1000", 500},
		{" 10 ", 10},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLimit(tt.raw))
		})
	}
}

func TestService_ListRecent_ClampsLimit(t *testing.T) {
	var gotLimit int
	svc := NewService(&mockRepository{
		ListByUserIDFunc: func(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
			gotLimit = limit
			return nil, nil
		},
	})

	txs, err := svc.ListRecent(context.Background(), "user-1", 9999)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, gotLimit)
	assert.NotNil(t, txs)

	_, err = svc.ListRecent(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTypeFromProvider(t *testing.T) {
	assert.Equal(t, TypeExpense, TypeFromProvider("debit"))
	assert.Equal(t, TypeExpense, TypeFromProvider("DEBIT"))
	assert.Equal(t, TypeIncome, TypeFromProvider("credit"))
	assert.Equal(t, TypeIncome, TypeFromProvider("card_payment"))
	assert.Equal(t, TypeIncome, TypeFromProvider(""))
}

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, StatusPending, StatusFromProvider("pending"))
	assert.Equal(t, StatusPosted, StatusFromProvider("posted"))
	assert.Equal(t, StatusPosted, StatusFromProvider(""))
}
