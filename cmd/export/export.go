// Package export dumps the check register to a CSV file.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/worq1337/parcer-sub001/cmd/root"
	"github.com/worq1337/parcer-sub001/internal/dateutils"
	"github.com/worq1337/parcer-sub001/internal/export"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

var (
	output string
	from   string
	to     string
	card   string
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export the check register to CSV",
	Long:  `Export saved checks to a CSV file, optionally filtered by date range or card.`,
	RunE:  exportFunc,
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "checks.csv", "Output CSV file")
	Cmd.Flags().StringVar(&from, "from", "", "Earliest check datetime to include")
	Cmd.Flags().StringVar(&to, "to", "", "Latest check datetime to include")
	Cmd.Flags().StringVar(&card, "card", "", "Only checks on this card (last 4 digits)")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := storage.Open(ctx, root.DBPath(cmd), logging.NewLogrusAdapterFromLogger(root.Log))
	if err != nil {
		return err
	}
	defer store.Close()

	filters := storage.CheckFilters{CardLast4: card}
	if filters.From, err = parseBound(from); err != nil {
		return err
	}
	if filters.To, err = parseBound(to); err != nil {
		return err
	}

	checks, err := store.ListChecks(ctx, filters)
	if err != nil {
		return err
	}

	if err := export.WriteRegisterToCSV(checks, output); err != nil {
		return err
	}
	root.Log.Infof("Exported %d checks to %s", len(checks), output)
	return nil
}

func parseBound(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, _, err := dateutils.ParseDateTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}
	return parsed, nil
}
