// Package export runs one Toggl to Drive export: resolve the date range,
// download the CSV once, then store it under the fixed "latest" name and,
// optionally, under a dated name.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/digitaldrywood/timeexport/internal/daterange"
	"github.com/digitaldrywood/timeexport/internal/google"
	"github.com/digitaldrywood/timeexport/internal/ledger"
	"github.com/digitaldrywood/timeexport/internal/toggl"
)

const DefaultNamePrefix = "toggl_time_entries"

type Fetcher interface {
	FetchTimeEntriesCSV(ctx context.Context, workspaceID, startDate, endDate string) (*toggl.Export, error)
}

type Storage interface {
	Upsert(ctx context.Context, payload google.Payload, name, folderID, targetFormat string) (*google.StoredFile, error)
}

type Recorder interface {
	Record(e *ledger.Entry) error
}

type Options struct {
	WorkspaceID  string
	FolderID     string
	StartDate    string
	EndDate      string
	NamePrefix   string
	TargetFormat string
	DailyCopy    bool
}

type Result struct {
	Label string
	File  *google.StoredFile
}

type Runner struct {
	opts     Options
	resolver *daterange.Resolver
	fetcher  Fetcher
	storage  Storage
	recorder Recorder
	out      io.Writer
}

type Option func(*Runner)

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func NewRunner(opts Options, resolver *daterange.Resolver, fetcher Fetcher, storage Storage, options ...Option) *Runner {
	if opts.NamePrefix == "" {
		opts.NamePrefix = DefaultNamePrefix
	}
	r := &Runner{
		opts:     opts,
		resolver: resolver,
		fetcher:  fetcher,
		storage:  storage,
		out:      os.Stdout,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Runner) LatestName() string {
	return r.opts.NamePrefix + "_latest"
}

func (r *Runner) DailyName() string {
	return r.opts.NamePrefix + "_" + r.resolver.Today()
}

// Run stops at the first error; nothing is stored if the download fails.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	logger := zerolog.Ctx(ctx)
	rng := r.resolver.Resolve(r.opts.StartDate, r.opts.EndDate)

	logger.Info().
		Str("workspace", r.opts.WorkspaceID).
		Str("range", rng.String()).
		Msg("Fetching Toggl CSV")

	export, err := r.fetcher.FetchTimeEntriesCSV(ctx, r.opts.WorkspaceID, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("bytes", len(export.Data)).Msg("CSV downloaded")

	payload := google.Payload{Data: export.Data, MimeType: export.ContentType}
	if payload.MimeType == "" {
		payload.MimeType = toggl.CSVContentType
	}

	targets := []struct{ label, name string }{{"latest", r.LatestName()}}
	if r.opts.DailyCopy {
		targets = append(targets, struct{ label, name string }{"daily", r.DailyName()})
	}

	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		stored, err := r.storage.Upsert(ctx, payload, target.name, r.opts.FolderID, r.opts.TargetFormat)
		if err != nil {
			return results, err
		}

		fmt.Fprintf(r.out, "✅ %s saved: %s\n", target.label, stored.Name)
		fmt.Fprintf(r.out, "   link: %s\n", stored.WebViewLink)

		if r.recorder != nil {
			entry := &ledger.Entry{
				RunAt:     time.Now(),
				Name:      stored.Name,
				FileID:    stored.ID,
				Link:      stored.WebViewLink,
				FolderID:  r.opts.FolderID,
				StartDate: rng.Start,
				EndDate:   rng.End,
				Bytes:     int64(len(payload.Data)),
				Created:   stored.Created,
			}
			if err := r.recorder.Record(entry); err != nil {
				// The file is already stored; losing a history row is not fatal.
				logger.Warn().Err(err).Str("name", stored.Name).Msg("failed to record export history")
			}
		}

		results = append(results, Result{Label: target.label, File: stored})
	}

	return results, nil
}
