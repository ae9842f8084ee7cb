// Package cli implements the polargraph command-line interface.
//
// The CLI is built with cobra and logs through charmbracelet/log. Status
// lines meant for people are styled with lipgloss; everything else goes to
// the logger on stderr.
//
// # Commands
//
//   - convert: Turn an image into SVG (and optionally JSON, PNG, a clearance plot)
//   - presets: List built-in and configured presets
//   - serve: Run the HTTP conversion service
//   - cache: Inspect or clear the artifact cache
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// reports every pipeline stage. Loggers are passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Wrote portrait.svg (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Pipeline hooks
// =============================================================================

// logHooks reports pipeline stages at debug level. Registered with -v.
type logHooks struct {
	logger *log.Logger
}

func newLogHooks(l *log.Logger) *logHooks {
	return &logHooks{logger: l.WithPrefix("pipeline")}
}

func (h *logHooks) OnDecodeStart(_ context.Context, size int) {
	h.logger.Debug("decode", "bytes", size)
}

func (h *logHooks) OnDecodeComplete(_ context.Context, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("decode failed", "error", err, "duration", d)
		return
	}
	h.logger.Debug("decoded", "width", width, "height", height, "duration", d)
}

func (h *logHooks) OnConvertStart(_ context.Context, width, height int) {
	h.logger.Debug("convert", "width", width, "height", height)
}

func (h *logHooks) OnConvertComplete(_ context.Context, rows, adjusted int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("convert failed", "error", err, "duration", d)
		return
	}
	h.logger.Debug("converted", "rows", rows, "adjusted", adjusted, "duration", d)
}

func (h *logHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("render", "formats", formats)
}

func (h *logHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "formats", formats, "error", err)
		return
	}
	h.logger.Debug("rendered", "formats", formats, "duration", d)
}
