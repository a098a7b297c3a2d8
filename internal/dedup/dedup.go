// Package dedup decides whether an incoming check repeats one already on
// record. Two checks are duplicates when they land on the same card with the
// same operator, their timestamps differ by strictly less than the window and
// their amounts differ by strictly less than the threshold.
package dedup

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worq1337/parcer-sub001/internal/fingerprint"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/storage"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate bool
	DuplicateOf string // check id of the surviving original
	Fingerprint string
	Via         string // "fingerprint" or "window", empty when not a duplicate
}

// Detector runs the two-tier duplicate check: an exact fingerprint lookup
// first, then a windowed comparison over candidates on the same card.
type Detector struct {
	store     *storage.Storage
	window    time.Duration
	threshold decimal.Decimal
	logger    logging.Logger
}

// NewDetector wires a detector over the given store. window and threshold
// come from configuration; zero values fall back to the defaults.
func NewDetector(store *storage.Storage, window time.Duration, threshold decimal.Decimal, logger logging.Logger) *Detector {
	if window <= 0 {
		window = 2 * time.Minute
	}
	if threshold.IsZero() {
		threshold = decimal.NewFromFloat(0.01)
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Detector{store: store, window: window, threshold: threshold, logger: logger}
}

// Window returns the configured dedup window.
func (d *Detector) Window() time.Duration {
	return d.window
}

// Check computes the check's fingerprint and looks for an earlier match. A
// check with no card or no operator can never be a duplicate.
func (d *Detector) Check(ctx context.Context, check *models.CheckItem) (*Result, error) {
	fp := fingerprint.Compute(fingerprint.Input{
		Datetime:        check.Datetime,
		Amount:          check.Amount,
		CardLast4:       check.CardLast4,
		Operator:        d.comparableOperator(check),
		TransactionType: check.TransactionType,
	}, d.window)

	result := &Result{Fingerprint: fp}
	if fp == "" {
		return result, nil
	}

	existing, err := d.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.CheckID != check.CheckID {
		result.IsDuplicate = true
		result.DuplicateOf = existing.CheckID
		result.Via = "fingerprint"
		return result, nil
	}

	// The fingerprint buckets time, so two checks just either side of a
	// bucket boundary hash differently. The windowed scan catches those.
	match, err := d.findInWindow(ctx, check)
	if err != nil {
		return nil, err
	}
	if match != nil {
		result.IsDuplicate = true
		result.DuplicateOf = match.CheckID
		result.Via = "window"
	}
	return result, nil
}

func (d *Detector) findInWindow(ctx context.Context, check *models.CheckItem) (*models.CheckItem, error) {
	from := check.Datetime.Add(-d.window)
	to := check.Datetime.Add(d.window)

	candidates, err := d.store.ListCandidates(ctx, check.CardLast4, from, to, check.CheckID)
	if err != nil {
		return nil, err
	}

	operator := textutils.NormalizeForMatch(d.comparableOperator(check))
	for _, candidate := range candidates {
		delta := check.Datetime.Sub(candidate.Datetime)
		if delta < 0 {
			delta = -delta
		}
		// Boundaries are exclusive: a gap of exactly the window or an
		// amount difference of exactly the threshold is not a duplicate.
		if delta >= d.window {
			continue
		}
		diff := check.Amount.Sub(candidate.Amount).Abs()
		if diff.Cmp(d.threshold) >= 0 {
			continue
		}
		if textutils.NormalizeForMatch(d.comparableOperator(candidate)) != operator {
			continue
		}
		return candidate, nil
	}
	return nil, nil
}

// comparableOperator prefers the directory-resolved name so that two
// spellings of the same merchant still collide.
func (d *Detector) comparableOperator(check *models.CheckItem) string {
	if check.Resolved.Operator != "" {
		return check.Resolved.Operator
	}
	return check.Operator
}
