// Package export writes the check register to CSV using gocsv.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/worq1337/parcer-sub001/internal/dateutils"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
)

var log = logging.GetLogger()

// Delimiter is the CSV output delimiter, configurable via environment.
var Delimiter rune = ','

func init() {
	if val := os.Getenv("CSV_DELIMITER"); val != "" {
		SetDelimiter([]rune(val)[0])
	}
}

// SetDelimiter allows setting the delimiter for CSV output
func SetDelimiter(delim rune) {
	Delimiter = delim
	gocsv.TagSeparator = fmt.Sprintf("%c", delim)
}

// RegisterRow is the CSV projection of one check, in the register's column
// order.
type RegisterRow struct {
	Number          int    `csv:"N"`
	Datetime        string `csv:"Datetime"`
	Weekday         string `csv:"Weekday"`
	Date            string `csv:"Date"`
	Time            string `csv:"Time"`
	Operator        string `csv:"Operator"`
	Canonical       string `csv:"Canonical Operator"`
	App             string `csv:"App"`
	Amount          string `csv:"Amount"`
	Currency        string `csv:"Currency"`
	CardLast4       string `csv:"Card"`
	TransactionType string `csv:"Type"`
	Balance         string `csv:"Balance"`
	IsP2P           bool   `csv:"P2P"`
	IsDuplicate     bool   `csv:"Duplicate"`
	Source          string `csv:"Source"`
	CheckID         string `csv:"Check ID"`
}

// WriteRegisterToCSV writes the checks to csvFile, numbering rows in the
// order given.
func WriteRegisterToCSV(checks []*models.CheckItem, csvFile string) error {
	if checks == nil {
		return fmt.Errorf("cannot write nil checks to CSV")
	}

	if dir := filepath.Dir(csvFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	file, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	rows := make([]RegisterRow, 0, len(checks))
	for i, check := range checks {
		rows = append(rows, rowFrom(i+1, check))
	}

	csvWriter := csv.NewWriter(file)
	csvWriter.Comma = Delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		log.WithError(err).Error("Failed to marshal checks to CSV")
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	log.WithFields(
		logging.Field{Key: "file", Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
	).Info("Wrote check register to CSV")
	return nil
}

func rowFrom(number int, check *models.CheckItem) RegisterRow {
	weekday, date, clock := dateutils.DisplayParts(check.Datetime)

	row := RegisterRow{
		Number:          number,
		Datetime:        check.Datetime.Format("2006-01-02 15:04:05"),
		Weekday:         weekday,
		Date:            date,
		Time:            clock,
		Operator:        check.Operator,
		Canonical:       check.Resolved.Operator,
		App:             check.Resolved.App,
		Amount:          check.Amount.StringFixed(2),
		Currency:        check.Currency,
		CardLast4:       check.CardLast4,
		TransactionType: check.TransactionType,
		IsP2P:           check.Resolved.IsP2P,
		IsDuplicate:     check.IsDuplicate,
		Source:          string(check.Source),
		CheckID:         check.CheckID,
	}
	if check.Balance != nil {
		row.Balance = check.Balance.StringFixed(2)
	}
	return row
}
