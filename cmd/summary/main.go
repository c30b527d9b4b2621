package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digitaldrywood/timeexport/internal/config"
	"github.com/digitaldrywood/timeexport/internal/daterange"
	"github.com/digitaldrywood/timeexport/internal/google"
	"github.com/digitaldrywood/timeexport/internal/ledger"
	"github.com/digitaldrywood/timeexport/internal/logging"
	"github.com/digitaldrywood/timeexport/internal/summary"
)

func main() {
	var (
		name    = flag.String("name", "", "Name of the exported sheet (default: <prefix>_latest)")
		date    = flag.String("date", "", "Summarize the dated copy for this day (YYYY-MM-DD)")
		history = flag.Bool("history", false, "List recent exports from the local history")
		limit   = flag.Int("limit", 20, "Number of history entries to show")
	)
	flag.Parse()

	cfg, err := config.LoadStorage()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, err := logging.NewLogger(logging.WithLevel(cfg.Logging.Level))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}
	zerolog.DefaultContextLogger = logger
	ctx := logger.WithContext(context.Background())

	if *history {
		if err := showHistory(os.Stdout, cfg, *limit); err != nil {
			logger.Fatal().Err(err).Msg("Failed to show export history")
		}
		return
	}

	sheetName := *name
	switch {
	case sheetName != "":
	case *date != "":
		sheetName = cfg.Export.NamePrefix + "_" + *date
	default:
		sheetName = cfg.Export.NamePrefix + "_latest"
	}

	if err := showSummary(ctx, cfg, sheetName); err != nil {
		logger.Fatal().Err(err).Str("name", sheetName).Msg("Failed to summarize export")
	}
}

func showSummary(ctx context.Context, cfg *config.Config, sheetName string) error {
	tokenJSON, err := cfg.DriveToken()
	if err != nil {
		return err
	}
	auth, err := google.NewAuthFromJSON(tokenJSON, cfg.Drive.Timeout)
	if err != nil {
		return err
	}

	driveService, err := auth.GetDriveService(ctx)
	if err != nil {
		return err
	}
	files, err := google.NewUploader(google.NewDriveFiles(driveService)).Lookup(ctx, sheetName, cfg.Drive.FolderID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No export named %s found.\n", sheetName)
		return nil
	}
	if files[0].MimeType != google.SpreadsheetMimeType {
		return errors.Errorf("%s is stored as %s, not as a Google Sheet", sheetName, files[0].MimeType)
	}

	sheetsService, err := auth.GetSheetsService(ctx)
	if err != nil {
		return err
	}
	rows, err := google.NewSheetsClient(sheetsService).ReadRows(ctx, files[0].Id, google.DefaultReadRange)
	if err != nil {
		return err
	}

	s, err := summary.FromRows(rows)
	if err != nil {
		return err
	}
	s.Render(os.Stdout, sheetName)
	if files[0].WebViewLink != "" {
		fmt.Println("   link:", files[0].WebViewLink)
	}
	return nil
}

func showHistory(w io.Writer, cfg *config.Config, limit int) error {
	if cfg.Ledger.DataDir == "" {
		return errors.New("TIMEEXPORT_DATA_DIR is not set, no export history is kept")
	}

	db, err := ledger.New(cfg.Ledger.DataDir)
	if err != nil {
		return errors.Wrap(err, "failed to open export history")
	}
	defer db.Close()

	entries, err := db.Recent(limit)
	if err != nil {
		return errors.Wrap(err, "failed to read export history")
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No exports recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Name", "Range", "Bytes", "Action")
	for _, e := range entries {
		action := "updated"
		if e.Created {
			action = "created"
		}
		table.Append(
			e.RunAt.Local().Format("2006-01-02 15:04"),
			e.Name,
			daterange.Range{Start: e.StartDate, End: e.EndDate}.String(),
			fmt.Sprintf("%d", e.Bytes),
			action,
		)
	}
	table.Render()
	return nil
}
