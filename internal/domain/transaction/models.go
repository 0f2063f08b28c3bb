package transaction

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

type Status string

const (
	StatusPosted  Status = "posted"
	StatusPending Status = "pending"
)

var ErrInvalidInput = errors.New("invalid input")

// Transaction is an immutable record copied from the provider. ExternalID is
// unique per account.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	ExternalID  string          `json:"externalId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    *Category       `json:"category"`
	Date        time.Time       `json:"date"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MarshalJSON renders Amount with two fractional digits.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type fields Transaction
	return json.Marshal(struct {
		fields
		Amount string `json:"amount"`
	}{fields(t), t.Amount.StringFixed(2)})
}

type CreateParams struct {
	AccountID   string
	ExternalID  string
	Amount      decimal.Decimal
	Description string
	Category    *Category
	Date        time.Time
	Type        Type
	Status      Status
}

func (p CreateParams) Validate() error {
	if p.AccountID == "" {
		return errors.New("account ID is required")
	}
	if p.ExternalID == "" {
		return errors.New("external transaction ID is required")
	}
	if p.Type != TypeIncome && p.Type != TypeExpense {
		return errors.New("transaction type must be income or expense")
	}
	if p.Category != nil && !p.Category.Valid() {
		return errors.New("unknown category")
	}
	return nil
}

// TypeFromProvider maps the provider's debit/credit marker. Only "debit" is
// an expense; every other marker counts as income.
func TypeFromProvider(providerType string) Type {
	if strings.EqualFold(strings.TrimSpace(providerType), "debit") {
		return TypeExpense
	}
	return TypeIncome
}

// StatusFromProvider defaults to posted unless the provider says pending.
func StatusFromProvider(status string) Status {
	if strings.EqualFold(strings.TrimSpace(status), string(StatusPending)) {
		return StatusPending
	}
	return StatusPosted
}
