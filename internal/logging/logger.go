// Package logging builds the zerolog logger shared by the commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type options struct {
	level  string
	writer io.Writer
	pretty bool
}

type Option func(*options)

// WithLevel sets the minimum level; an empty string means info.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithWriter replaces the default stderr sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithJSON disables the console formatter.
func WithJSON() Option {
	return func(o *options) { o.pretty = false }
}

func NewLogger(opts ...Option) (*zerolog.Logger, error) {
	o := &options{
		level:  "info",
		writer: os.Stderr,
		pretty: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.level == "" {
		o.level = "info"
	}
	level, err := zerolog.ParseLevel(o.level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", o.level)
	}

	w := o.writer
	if o.pretty {
		w = zerolog.ConsoleWriter{Out: o.writer, TimeFormat: time.RFC3339, NoColor: o.writer != os.Stderr}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &logger, nil
}
