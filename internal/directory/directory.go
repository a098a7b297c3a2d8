// Package directory implements the operator dictionary lookup: raw merchant
// text to canonical operator name, owning application and P2P flag.
//
// Matching is a two-step ordered strategy: an exact lookup over normalized
// synonyms and canonical names first, then a substring scan over the entries
// in their directory order. First hit wins. A synonym that is a substring of
// another operator's name can therefore shadow it; that tie-break is part of
// the observed behavior and is kept deterministic by directory order rather
// than fixed with scoring.
package directory

import (
	"strings"
	"sync"

	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// Match is the result of a directory lookup.
type Match struct {
	CanonicalName string
	AppName       string
	IsP2P         bool
}

// Directory holds the operator entries and the exact-lookup index. It is
// read-mostly: Reload swaps the whole state under the write lock.
type Directory struct {
	mu      sync.RWMutex
	entries []models.OperatorEntry
	exact   map[string]int // normalized synonym or canonical name -> entry index
	logger  logging.Logger
}

// New builds a directory from the given entries, preserving their order.
func New(entries []models.OperatorEntry, logger logging.Logger) *Directory {
	if logger == nil {
		logger = logging.GetLogger()
	}
	d := &Directory{logger: logger}
	d.replace(entries)
	return d
}

// NewFromStore loads the operators file and builds a directory from it.
func NewFromStore(store *Store, logger logging.Logger) (*Directory, error) {
	entries, err := store.LoadOperators()
	if err != nil {
		return nil, err
	}
	return New(entries, logger), nil
}

func (d *Directory) replace(entries []models.OperatorEntry) {
	exact := make(map[string]int)
	for i, entry := range entries {
		if key := textutils.NormalizeForMatch(entry.CanonicalName); key != "" {
			if _, taken := exact[key]; !taken {
				exact[key] = i
			}
		}
		for _, synonym := range entry.Synonyms {
			if key := textutils.NormalizeForMatch(synonym); key != "" {
				if _, taken := exact[key]; !taken {
					exact[key] = i
				}
			}
		}
	}

	d.mu.Lock()
	d.entries = entries
	d.exact = exact
	d.mu.Unlock()
}

// Reload re-reads the operators file and swaps the directory contents.
func (d *Directory) Reload(store *Store) error {
	entries, err := store.LoadOperators()
	if err != nil {
		return err
	}
	d.replace(entries)
	d.logger.WithField(logging.FieldCount, len(entries)).Debug("Operator directory reloaded")
	return nil
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Match looks up the raw operator text. The boolean is false when no entry
// matches; that is not an error condition for callers.
func (d *Directory) Match(rawOperator string) (Match, bool) {
	normalized := textutils.NormalizeForMatch(rawOperator)
	if normalized == "" {
		return Match{}, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if idx, ok := d.exact[normalized]; ok {
		return d.matchAt(idx), true
	}

	for i, entry := range d.entries {
		if canonical := textutils.NormalizeForMatch(entry.CanonicalName); canonical != "" &&
			strings.Contains(normalized, canonical) {
			return d.matchAt(i), true
		}
		for _, synonym := range entry.Synonyms {
			if key := textutils.NormalizeForMatch(synonym); key != "" &&
				strings.Contains(normalized, key) {
				return d.matchAt(i), true
			}
		}
	}

	return Match{}, false
}

func (d *Directory) matchAt(idx int) Match {
	entry := d.entries[idx]
	return Match{
		CanonicalName: entry.CanonicalName,
		AppName:       entry.AppName,
		IsP2P:         entry.IsP2P,
	}
}
