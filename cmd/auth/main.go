package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digitaldrywood/timeexport/internal/config"
	"github.com/digitaldrywood/timeexport/internal/google"
	"github.com/digitaldrywood/timeexport/internal/logging"
)

func main() {
	fmt.Println("=== Time Export Authentication Check ===")
	fmt.Println()

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

	tokenJSON, err := cfg.DriveToken()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read Drive token")
	}

	auth, err := google.NewAuthFromJSON(tokenJSON, cfg.Drive.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create auth client")
	}

	// Refreshes the token if it has expired.
	service, err := auth.GetDriveService(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to authenticate")
	}

	about, err := service.About.Get().Fields("user(displayName,emailAddress)").Context(ctx).Do()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to access Drive")
	}

	fmt.Println("✅ Authentication successful!")
	fmt.Printf("👤 Connected to Drive as: %s <%s>\n", about.User.DisplayName, about.User.EmailAddress)

	if cfg.Drive.FolderID != "" {
		folder, err := service.Files.Get(cfg.Drive.FolderID).Fields("id", "name").Context(ctx).Do()
		if err != nil {
			logger.Fatal().Err(err).Str("folder", cfg.Drive.FolderID).Msg("Failed to access folder")
		}
		fmt.Printf("📁 Export folder: %s\n", folder.Name)
	}

	fmt.Println()
	fmt.Println("You can now run the export:")
	fmt.Println("  make export   - Fetch Toggl entries and upload them to Drive")
	fmt.Println("  make summary  - Show hours per project from the latest export")
}
