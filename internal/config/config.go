package config

import (
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	FormatSheet = "sheet"
	FormatCSV   = "csv"

	AuthBasic  = "basic"
	AuthHeader = "header"
)

type Config struct {
	Toggl   Toggl
	Drive   Drive
	Export  Export
	Logging Logging
	Ledger  Ledger
}

type Toggl struct {
	APIToken    string        `env:"TOGGL_API_TOKEN" env-description:"Toggl API token, required by the exporter"`
	WorkspaceID string        `env:"TOGGL_WORKSPACE_ID" env-description:"Toggl workspace id, required by the exporter"`
	AuthScheme  string        `env:"TOGGL_AUTH_SCHEME" env-default:"basic" env-description:"how the token is presented: basic or header"`
	Method      string        `env:"TOGGL_HTTP_METHOD" env-default:"POST" env-description:"HTTP verb for the reports call: POST or GET"`
	BaseURL     string        `env:"TOGGL_BASE_URL" env-default:"https://api.track.toggl.com" env-description:"Toggl API base URL"`
	Timeout     time.Duration `env:"TOGGL_TIMEOUT" env-default:"90s" env-description:"timeout for the reports call"`
}

type Drive struct {
	Token     string        `env:"GOOGLE_DRIVE_TOKEN" env-description:"authorized user token JSON"`
	TokenPath string        `env:"GOOGLE_DRIVE_TOKEN_FILE" env-description:"path to a file holding the token JSON"`
	FolderID  string        `env:"DRIVE_FOLDER_ID" env-description:"optional folder to search and create files in"`
	Timeout   time.Duration `env:"GOOGLE_TIMEOUT" env-default:"60s" env-description:"timeout for each Drive call"`
}

type Export struct {
	StartDate      string `env:"START_DATE" env-description:"explicit start date, YYYY-MM-DD"`
	EndDate        string `env:"END_DATE" env-description:"explicit end date, YYYY-MM-DD"`
	Days           int    `env:"DAYS" env-default:"90" env-description:"look-back window when no explicit dates are given"`
	WriteDailyCopy string `env:"WRITE_DAILY_COPY" env-default:"true" env-description:"also write a dated copy"`
	NamePrefix     string `env:"EXPORT_NAME_PREFIX" env-default:"toggl_time_entries" env-description:"prefix for stored file names"`
	Format         string `env:"EXPORT_FORMAT" env-default:"sheet" env-description:"sheet converts to Google Sheets, csv keeps the raw file"`
	Timezone       string `env:"TIMEZONE" env-description:"IANA zone used to compute today, defaults to local"`
}

type Logging struct {
	Level string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level such as debug, info, warn"`
}

type Ledger struct {
	DataDir string `env:"TIMEEXPORT_DATA_DIR" env-description:"directory for the export history database, empty disables it"`
}

// Load reads the full exporter configuration. Required values that are set
// but empty count as missing.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStorage reads the configuration for commands that only talk to Drive;
// the Toggl keys are not required.
func LoadStorage() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func read() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read configuration from environment")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Toggl.APIToken) == "" {
		return errors.New("TOGGL_API_TOKEN environment variable is required")
	}
	if strings.TrimSpace(c.Toggl.WorkspaceID) == "" {
		return errors.New("TOGGL_WORKSPACE_ID environment variable is required")
	}

	switch c.Toggl.AuthScheme {
	case AuthBasic, AuthHeader:
	default:
		return errors.Errorf("TOGGL_AUTH_SCHEME must be %q or %q, got %q", AuthBasic, AuthHeader, c.Toggl.AuthScheme)
	}

	c.Toggl.Method = strings.ToUpper(c.Toggl.Method)
	if c.Toggl.Method != "POST" && c.Toggl.Method != "GET" {
		return errors.Errorf("TOGGL_HTTP_METHOD must be POST or GET, got %q", c.Toggl.Method)
	}

	return c.ValidateStorage()
}

// ValidateStorage checks everything except the Toggl settings.
func (c *Config) ValidateStorage() error {
	if strings.TrimSpace(c.Drive.Token) == "" && strings.TrimSpace(c.Drive.TokenPath) == "" {
		return errors.New("GOOGLE_DRIVE_TOKEN (or GOOGLE_DRIVE_TOKEN_FILE) environment variable is required")
	}

	switch c.Export.Format {
	case FormatSheet, FormatCSV:
	default:
		return errors.Errorf("EXPORT_FORMAT must be %q or %q, got %q", FormatSheet, FormatCSV, c.Export.Format)
	}

	if c.Export.Days < 0 {
		return errors.Errorf("DAYS must not be negative, got %d", c.Export.Days)
	}

	if c.Export.Timezone != "" {
		if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
			return errors.Wrapf(err, "invalid TIMEZONE %q", c.Export.Timezone)
		}
	}

	return nil
}

// DriveToken returns the token JSON, reading GOOGLE_DRIVE_TOKEN_FILE when the
// inline value is not set.
func (c *Config) DriveToken() ([]byte, error) {
	if strings.TrimSpace(c.Drive.Token) != "" {
		return []byte(c.Drive.Token), nil
	}

	b, err := os.ReadFile(c.Drive.TokenPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read Drive token file")
	}
	return b, nil
}

// DailyCopy reports whether the dated copy is enabled. An unset
// WRITE_DAILY_COPY defaults to true; set but empty disables it.
func (c *Config) DailyCopy() bool {
	return ParseBool(c.Export.WriteDailyCopy)
}

func (c *Config) Location() *time.Location {
	if c.Export.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseBool treats 1, true, yes, y and on as true and anything else,
// including an empty value, as false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
