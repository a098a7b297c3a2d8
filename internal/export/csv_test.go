package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worq1337/parcer-sub001/internal/models"
)

func sampleChecks() []*models.CheckItem {
	balance := decimal.RequireFromString("120000.50")
	return []*models.CheckItem{
		{
			CheckID: "check-1",
			Source:  models.SourceTelegramBot,
			ExtractedFields: models.ExtractedFields{
				Datetime:        time.Date(2025, 4, 6, 14, 5, 0, 0, time.UTC),
				Amount:          decimal.RequireFromString("-15000"),
				Currency:        "UZS",
				CardLast4:       "1234",
				Operator:        "YANDEX GO",
				TransactionType: "Оплата",
				Balance:         &balance,
			},
			Resolved: models.ResolvedFields{Operator: "Yandex Go", App: "Yandex Go"},
		},
		{
			CheckID: "check-2",
			Source:  models.SourceSMS,
			ExtractedFields: models.ExtractedFields{
				Datetime:        time.Date(2025, 4, 6, 15, 0, 0, 0, time.UTC),
				Amount:          decimal.RequireFromString("50000"),
				Currency:        "UZS",
				CardLast4:       "5678",
				Operator:        "AKMAL T.",
				TransactionType: "Пополнение",
			},
			Resolved:    models.ResolvedFields{IsP2P: true},
			IsDuplicate: true,
		},
	}
}

func TestWriteRegisterToCSV(t *testing.T) {
	output := filepath.Join(t.TempDir(), "register.csv")
	require.NoError(t, WriteRegisterToCSV(sampleChecks(), output))

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, []string{
		"N", "Datetime", "Weekday", "Date", "Time", "Operator", "Canonical Operator",
		"App", "Amount", "Currency", "Card", "Type", "Balance", "P2P", "Duplicate",
		"Source", "Check ID",
	}, header)

	first := records[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "2025-04-06 14:05:00", first[1])
	assert.Equal(t, "06.04.2025", first[3])
	assert.Equal(t, "14:05", first[4])
	assert.Equal(t, "YANDEX GO", first[5])
	assert.Equal(t, "Yandex Go", first[6])
	assert.Equal(t, "-15000.00", first[8])
	assert.Equal(t, "120000.50", first[12])
	assert.Equal(t, "false", first[13])
	assert.Equal(t, "check-1", first[16])

	second := records[2]
	assert.Equal(t, "2", second[0])
	assert.Equal(t, "50000.00", second[8])
	assert.Equal(t, "", second[12])
	assert.Equal(t, "true", second[13])
	assert.Equal(t, "true", second[14])
	assert.Equal(t, "sms", second[15])
}

func TestWriteRegisterToCSV_NilChecks(t *testing.T) {
	err := WriteRegisterToCSV(nil, filepath.Join(t.TempDir(), "register.csv"))
	assert.Error(t, err)
}

func TestWriteRegisterToCSV_CreatesDirectory(t *testing.T) {
	output := filepath.Join(t.TempDir(), "nested", "dir", "register.csv")
	require.NoError(t, WriteRegisterToCSV([]*models.CheckItem{}, output))

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestSetDelimiter(t *testing.T) {
	t.Cleanup(func() { SetDelimiter(',') })
	SetDelimiter(';')

	output := filepath.Join(t.TempDir(), "register.csv")
	require.NoError(t, WriteRegisterToCSV(sampleChecks(), output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "N;Datetime;Weekday")
}
