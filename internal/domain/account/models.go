package account

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account types exposed to clients.
const (
	TypeChecking = "checking"
	TypeSavings  = "savings"
	TypeCredit   = "credit"
	TypeOther    = "other"
)

const DefaultCurrency = "USD"

// Domain errors
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists for this user")
	ErrForbidden        = errors.New("access forbidden")
	ErrInvalidInput     = errors.New("invalid input")
)

// Account is a bank account linked through the provider. ExternalID is the
// provider's id and is unique per user.
type Account struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	IsActive   bool            `json:"isActive"`
	LastSyncAt *time.Time      `json:"lastSyncAt"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// MoneyScale is the number of fractional digits money is stored and served with.
const MoneyScale = 2

// MarshalJSON renders Balance with exactly MoneyScale fractional digits.
func (a Account) MarshalJSON() ([]byte, error) {
	type fields Account
	return json.Marshal(struct {
		fields
		Balance string `json:"balance"`
	}{fields(a), a.Balance.StringFixed(MoneyScale)})
}

// CreateParams contains parameters for creating a new account
type CreateParams struct {
	UserID     string
	ExternalID string
	Name       string
	Type       string
	Balance    decimal.Decimal
	Currency   string
	IsActive   bool
	LastSyncAt time.Time
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.ExternalID == "" {
		return errors.New("external account ID is required")
	}
	if p.Name == "" {
		return errors.New("account name is required")
	}
	if len(p.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	return nil
}

// SyncUpdate holds the fields a sync is allowed to change on a known account.
type SyncUpdate struct {
	Balance  decimal.Decimal
	IsActive bool
	SyncedAt time.Time
}

// NormalizeType maps the provider's type/subtype pair onto the account types
// clients understand.
func NormalizeType(providerType, subtype string) string {
	providerType = strings.ToLower(strings.TrimSpace(providerType))
	subtype = strings.ToLower(strings.TrimSpace(subtype))

	switch {
	case subtype == TypeChecking || providerType == TypeChecking:
		return TypeChecking
	case subtype == TypeSavings || providerType == TypeSavings:
		return TypeSavings
	case providerType == TypeCredit || subtype == "credit_card":
		return TypeCredit
	default:
		return TypeOther
	}
}

// NormalizeCurrency upper-cases code and defaults to USD.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
