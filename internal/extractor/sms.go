package extractor

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// Uzum Bank SMS notifications follow a fixed transliterated format, so they
// are parsed with regexes instead of spending an LLM call. One SMS can carry
// several operations, one per line; OTP confirmation lines are skipped.
var (
	uzumOTPPrefix = regexp.MustCompile(`(?i)^<#>\s*Uzum\s*bank\s+Podtverdite`)
	uzumDebitRe   = regexp.MustCompile(`(?i)Spisanie,\s*karta\s*\*{0,4}(\d{4})\s*:\s*([\d.,]+)\s*UZS,\s*(.+?)\.\s*Dostupno:\s*([\d.,]+)\s*UZS`)
	uzumCreditRe  = regexp.MustCompile(`(?i)Popolnenie\s+ot\s+(.+?)\s+na\s*([\d.,]+)\s*UZS.*karta\s*\*{0,4}(\d{4}).*Dostupno:\s*([\d.,]+)\s*UZS`)
	uzumP2PRe     = regexp.MustCompile(`(?i)\bto\s+(HUMO|UZCARD|VISAUZUM)\b`)
)

const uzumAppName = "Uzum Bank"

// SMSOperation is one operation recovered from an SMS line.
type SMSOperation struct {
	Raw  RawExtraction
	Line string // the source line, stored as the check's raw text
}

// TryParseUzumSMS attempts the fast-path parse. It returns one operation per
// recognized line, or nil when the text is not an Uzum Bank SMS. SMS carries
// no timestamp, so now anchors the operations.
func TryParseUzumSMS(text string, now time.Time) []SMSOperation {
	var operations []SMSOperation

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || uzumOTPPrefix.MatchString(line) {
			continue
		}

		if match := uzumDebitRe.FindStringSubmatch(line); match != nil {
			operations = append(operations, uzumOperation(line, now, smsFields{
				card:     match[1],
				amount:   match[2],
				operator: match[3],
				balance:  match[4],
				income:   false,
			}))
			continue
		}

		if match := uzumCreditRe.FindStringSubmatch(line); match != nil {
			operations = append(operations, uzumOperation(line, now, smsFields{
				card:     match[3],
				amount:   match[2],
				operator: match[1],
				balance:  match[4],
				income:   true,
			}))
		}
	}

	return operations
}

type smsFields struct {
	card, amount, operator, balance string
	income                          bool
}

func uzumOperation(line string, now time.Time, f smsFields) SMSOperation {
	operator := textutils.SanitizeOperatorName(f.operator)
	if operator == "" {
		operator = uzumAppName
	}

	transactionType := TypePayment
	if f.income {
		transactionType = TypeTopUp
	}

	income := f.income
	isP2P := uzumP2PRe.MatchString(line)

	raw := RawExtraction{
		Datetime:        now.Format("2006-01-02 15:04:05"),
		TransactionType: transactionType,
		Amount:          amountNumberFromSMS(f.amount),
		IsIncome:        &income,
		Currency:        "UZS",
		CardLast4:       f.card,
		Operator:        operator,
		App:             uzumAppName,
		IsP2P:           &isP2P,
	}
	if f.balance != "" {
		balance := amountNumberFromSMS(f.balance)
		raw.Balance = &balance
	}

	return SMSOperation{Raw: raw, Line: line}
}

// amountNumberFromSMS carries the SMS amount verbatim; normalization parses
// the localized separators later.
func amountNumberFromSMS(raw string) json.Number {
	return json.Number(strings.TrimSpace(raw))
}
