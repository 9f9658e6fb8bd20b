package core

import (
	"log/slog"

	"krar/pkg/progress"
)

type options struct {
	compression CompressionScheme
	level       Level
	overwrite   bool
	logger      *slog.Logger
	progress    *progress.Tracker
}

func newOptions(opts []Option) options {
	o := options{
		compression: CompressionZstd,
		level:       LevelDefault,
		overwrite:   true,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Reader or a Writer. Options that do not apply to the
// value being built are ignored.
type Option func(*options)

// WithCompression selects the payload compression used by a Writer.
func WithCompression(scheme CompressionScheme, level Level) Option {
	return func(o *options) {
		o.compression = scheme
		o.level = level
	}
}

// WithLogger sets the logger used for skipped sources and failed entries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress reports processed bytes to t.
func WithProgress(t *progress.Tracker) Option {
	return func(o *options) {
		o.progress = t
	}
}

// WithOverwrite controls whether extraction may replace existing files.
// It defaults to true; when false, an existing target is an ErrExists failure
// for that entry.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.overwrite = overwrite
	}
}
