package transaction

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_MarshalJSONFixedScale(t *testing.T) {
	food := CategoryFood
	tx := Transaction{
		ID:          "tx-1",
		Amount:      decimal.RequireFromString("-42.5"),
		Description: "Whole Foods Market #123",
		Category:    &food,
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:        TypeExpense,
		Status:      StatusPosted,
	}

	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "-42.50", out["amount"])
	assert.Equal(t, "food", out["category"])
	assert.Equal(t, "expense", out["type"])

	var back Transaction
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, tx.Amount.Equal(back.Amount))
}
