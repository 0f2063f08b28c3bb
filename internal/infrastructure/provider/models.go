package provider

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RemoteAccount is an account as the provider reports it. Balances arrive
// either as JSON numbers or decimal strings; decimal accepts both.
type RemoteAccount struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Subtype      string      `json:"subtype"`
	Balance      Balance     `json:"balance"`
	Currency     string      `json:"currency"`
	EnrollmentID string      `json:"enrollment_id"`
	Institution  Institution `json:"institution"`
	LastFour     string      `json:"last_four"`
	Status       string      `json:"status"`
}

type Balance struct {
	Ledger    decimal.Decimal `json:"ledger"`
	Available decimal.Decimal `json:"available"`
}

type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsOpen reports whether the provider considers the account open.
func (a RemoteAccount) IsOpen() bool {
	return a.Status == "open"
}

// RemoteTransaction is a transaction as the provider reports it. Amount is
// signed; Type is the provider's debit/credit marker.
type RemoteTransaction struct {
	ID          string             `json:"id"`
	AccountID   string             `json:"account_id"`
	Amount      decimal.Decimal    `json:"amount"`
	Date        string             `json:"date"`
	Description string             `json:"description"`
	Details     TransactionDetails `json:"details"`
	Status      string             `json:"status"`
	Type        string             `json:"type"`
}

type TransactionDetails struct {
	Category         string `json:"category"`
	ProcessingStatus string `json:"processing_status"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339Nano, "2006-01-02 15:04:05"}

// ParsedDate parses the provider date. Plain dates are taken as UTC midnight.
func (t RemoteTransaction) ParsedDate() (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, t.Date); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date '%s'", t.Date)
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
