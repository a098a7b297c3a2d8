package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedFields is the structured result of running the extractor over a
// raw notification text. All fields beyond Amount and Datetime are optional;
// the pipeline validates what it needs per stage.
type ExtractedFields struct {
	Datetime        time.Time        `json:"datetime"`
	Amount          decimal.Decimal  `json:"amount"` // signed: negative for debits
	Currency        string           `json:"currency"`
	CardLast4       string           `json:"card_last4"`
	Operator        string           `json:"operator"`
	TransactionType string           `json:"transaction_type"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
}

// ResolvedFields is the result of the operator directory lookup. Zero values
// mean the raw operator text matched no directory entry, which is not an
// error: a receipt with an unknown operator is still valid.
type ResolvedFields struct {
	Operator string `json:"operator,omitempty"` // canonical name
	App      string `json:"app,omitempty"`      // owning application
	IsP2P    bool   `json:"is_p2p"`
}

// CheckItem is one logical transaction record derived from a single raw
// notification. CheckID is assigned once at first ingestion and reused by
// every requeue; RawText never mutates after creation.
type CheckItem struct {
	CheckID string `json:"check_id"`
	Source  Source `json:"source"`
	RawText string `json:"raw_text"`

	// BotID names the bot whose extraction client handles this check, so a
	// requeue runs on the same client. Empty outside bot sources.
	BotID string `json:"bot_id,omitempty"`

	ExtractedFields
	Resolved ResolvedFields `json:"resolved"`

	IsDuplicate bool   `json:"is_duplicate"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// Denormalized from the latest pipeline event for fast queue listing.
	LastStage  Stage       `json:"last_stage"`
	LastStatus EventStatus `json:"last_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManualOverrides carries explicit field values supplied on the manual entry
// path. They take precedence over extractor output where set.
type ManualOverrides struct {
	Datetime  *time.Time
	Amount    *decimal.Decimal
	Currency  string
	CardLast4 string
	Operator  string
	IsP2P     *bool
}
