package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digitaldrywood/timeexport/internal/config"
	"github.com/digitaldrywood/timeexport/internal/daterange"
	"github.com/digitaldrywood/timeexport/internal/export"
	"github.com/digitaldrywood/timeexport/internal/google"
	"github.com/digitaldrywood/timeexport/internal/ledger"
	"github.com/digitaldrywood/timeexport/internal/logging"
	"github.com/digitaldrywood/timeexport/internal/toggl"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, err := logging.NewLogger(logging.WithLevel(cfg.Logging.Level))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}
	zerolog.DefaultContextLogger = logger
	ctx := logger.WithContext(context.Background())

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("Export failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	auth := toggl.BasicAuth(cfg.Toggl.APIToken)
	if cfg.Toggl.AuthScheme == config.AuthHeader {
		auth = toggl.HeaderAuth(cfg.Toggl.APIToken)
	}
	fetcher := toggl.NewClient(auth,
		toggl.WithBaseURL(cfg.Toggl.BaseURL),
		toggl.WithTimeout(cfg.Toggl.Timeout),
		toggl.WithMethod(cfg.Toggl.Method),
	)

	tokenJSON, err := cfg.DriveToken()
	if err != nil {
		return err
	}
	driveAuth, err := google.NewAuthFromJSON(tokenJSON, cfg.Drive.Timeout)
	if err != nil {
		return err
	}

	files := google.NewLazyFiles(func(ctx context.Context) (google.FileService, error) {
		zerolog.Ctx(ctx).Info().Msg("Building Drive client (OAuth)")
		srv, err := driveAuth.GetDriveService(ctx)
		if err != nil {
			return nil, err
		}
		return google.NewDriveFiles(srv), nil
	})

	targetFormat := google.SpreadsheetMimeType
	if cfg.Export.Format == config.FormatCSV {
		targetFormat = toggl.CSVContentType
	}

	var opts []export.Option
	if cfg.Ledger.DataDir != "" {
		db, err := ledger.New(cfg.Ledger.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, export.WithRecorder(db))
	}

	runner := export.NewRunner(export.Options{
		WorkspaceID:  cfg.Toggl.WorkspaceID,
		FolderID:     cfg.Drive.FolderID,
		StartDate:    cfg.Export.StartDate,
		EndDate:      cfg.Export.EndDate,
		NamePrefix:   cfg.Export.NamePrefix,
		TargetFormat: targetFormat,
		DailyCopy:    cfg.DailyCopy(),
	},
		daterange.NewResolver(cfg.Export.Days, cfg.Location()),
		fetcher,
		google.NewUploader(files),
		opts...,
	)

	_, err = runner.Run(ctx)
	return err
}
