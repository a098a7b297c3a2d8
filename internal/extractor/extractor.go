// Package extractor turns free-text bank notifications into structured
// fields. A fast regex path handles known SMS formats; everything else goes
// through a pluggable LLM client. Clients return loosely typed raw
// extractions; Normalize converts those into validated model fields.
package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/worq1337/parcer-sub001/internal/cardutils"
	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/dateutils"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// Canonical transaction type labels, as emitted by the notification formats
// this service ingests.
const (
	TypePayment = "Оплата"
	TypeTopUp   = "Пополнение"
	TypeDebit   = "Списание"
	TypeRefund  = "Возврат"
)

// Client extracts structured fields from one notification text.
type Client interface {
	// Extract returns the raw extraction or a ParseError when the text
	// cannot be understood.
	Extract(ctx context.Context, rawText string) (*RawExtraction, error)
	// Name identifies the client in logs and pool listings.
	Name() string
}

// RawExtraction is the loosely typed result of an extraction, before
// normalization. Field tags follow the JSON contract the LLM is prompted
// to produce.
type RawExtraction struct {
	Datetime        string       `json:"datetime"`
	TransactionType string       `json:"transactionType"`
	Amount          json.Number  `json:"amount"`
	IsIncome        *bool        `json:"isIncome"`
	Currency        string       `json:"currency"`
	CardLast4       string       `json:"cardLast4"`
	Operator        string       `json:"operator"`
	Balance         *json.Number `json:"balance"`

	// Hints set only by the SMS fast path, never by the LLM.
	App   string `json:"-"`
	IsP2P *bool  `json:"-"`
}

// Normalize validates a raw extraction and converts it into typed fields.
// now anchors notifications that carry no timestamp of their own.
func Normalize(raw *RawExtraction, now time.Time) (*models.ExtractedFields, error) {
	if raw == nil {
		return nil, &checkerror.ValidationError{Field: "extraction", Reason: "empty result"}
	}

	fields := &models.ExtractedFields{}

	if strings.TrimSpace(raw.Datetime) == "" {
		fields.Datetime = now
	} else {
		parsed, _, err := dateutils.ParseDateTime(raw.Datetime)
		if err != nil {
			return nil, &checkerror.ValidationError{
				Field: "datetime", Value: raw.Datetime, Reason: "unrecognized format",
			}
		}
		fields.Datetime = parsed
	}

	amount, ok := textutils.ParseMoney(string(raw.Amount))
	if !ok {
		return nil, &checkerror.ValidationError{
			Field: "amount", Value: string(raw.Amount), Reason: "not a number",
		}
	}
	if amount.IsZero() {
		return nil, &checkerror.ValidationError{
			Field: "amount", Value: string(raw.Amount), Reason: "zero amount",
		}
	}
	// The model reports magnitude plus direction; expenses are stored
	// negative, income positive.
	amount = amount.Abs()
	if raw.IsIncome != nil && !*raw.IsIncome {
		amount = amount.Neg()
	}
	fields.Amount = amount

	operator := textutils.SanitizeOperatorName(raw.Operator)
	if operator == "" {
		return nil, &checkerror.ValidationError{Field: "operator", Reason: "missing"}
	}
	fields.Operator = operator

	fields.Currency = strings.ToUpper(strings.TrimSpace(raw.Currency))
	if fields.Currency == "" {
		fields.Currency = "UZS"
	}

	fields.CardLast4 = cardutils.NormalizeLast4(raw.CardLast4)
	fields.TransactionType = strings.TrimSpace(raw.TransactionType)
	if fields.TransactionType == "" {
		fields.TransactionType = TypePayment
	}

	if raw.Balance != nil {
		if balance, ok := textutils.ParseMoney(string(*raw.Balance)); ok {
			fields.Balance = &balance
		}
	}

	return fields, nil
}
