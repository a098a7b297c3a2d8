// Package ingest feeds a single notification text through the pipeline from
// the command line.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/worq1337/parcer-sub001/cmd/root"
	"github.com/worq1337/parcer-sub001/internal/container"
	"github.com/worq1337/parcer-sub001/internal/models"
	"github.com/worq1337/parcer-sub001/internal/pipeline"
)

var (
	source   string
	textFlag string
	filePath string
)

// Cmd represents the ingest command
var Cmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process one notification text",
	Long: `Process a single notification text through the full pipeline and print
the resulting check ids. The text comes from --text, --file or stdin.`,
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().StringVar(&source, "source", "manual", "Ingestion source: telegram-bot, userbot-forward, sms or manual")
	Cmd.Flags().StringVar(&textFlag, "text", "", "Notification text")
	Cmd.Flags().StringVar(&filePath, "file", "", "Read the notification text from a file")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	text, err := readText()
	if err != nil {
		return err
	}

	cfg := root.Cfg
	if path := root.DBPath(cmd); path != "" {
		cfg.Storage.Path = path
	}

	ctx := context.Background()
	app, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ids, err := app.Coordinator().Ingest(ctx, models.NormalizeSource(source), text, pipeline.IngestOptions{})
	if err != nil {
		return err
	}
	app.Coordinator().Wait()

	for _, id := range ids {
		check, err := app.Store().GetCheck(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s %s  %s  [%s/%s]\n",
			check.CheckID, check.Datetime.Format("2006-01-02 15:04"),
			check.Amount.String(), check.Currency, check.Operator,
			check.LastStage, check.LastStatus)
	}
	return nil
}

func readText() (string, error) {
	if textFlag != "" {
		return textFlag, nil
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given: use --text, --file or stdin")
	}
	return text, nil
}
