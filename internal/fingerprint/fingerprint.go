// Package fingerprint builds deterministic duplicate-detection hashes for
// transaction candidates. The datetime is bucketed to a configurable window
// so that clock drift between banking apps does not defeat deduplication.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worq1337/parcer-sub001/internal/cardutils"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// DefaultWindow is the bucket size applied when none is configured.
const DefaultWindow = 5 * time.Minute

// Input carries the candidate fields that participate in the hash.
type Input struct {
	Datetime        time.Time
	Amount          decimal.Decimal
	CardLast4       string
	Operator        string
	TransactionType string
}

// Compute returns the hex-encoded fingerprint. Candidates without card
// digits or without an operator return "" and cannot be deduplicated by this
// rule.
func Compute(in Input, window time.Duration) string {
	card := cardutils.NormalizeLast4(in.CardLast4)
	operator := textutils.NormalizeForMatch(in.Operator)
	if card == "" || operator == "" {
		return ""
	}
	if window <= 0 {
		window = DefaultWindow
	}

	bucket := in.Datetime.Unix() / int64(window.Seconds())
	content := strings.Join([]string{
		decimal.NewFromInt(bucket).String(),
		in.Amount.StringFixed(2),
		card,
		operator,
		strings.ToLower(strings.TrimSpace(in.TransactionType)),
	}, "|")

	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
