package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// A formatted log record.
type Entry struct {
	Time    time.Time   // Time the record was created.
	Level   slog.Level  // Record level.
	Message string      // Record message.
	Groups  []string    // Handler groups, outermost first.
	Attrs   []slog.Attr // Handler attributes followed by record attributes.
}

// Renders entries into bytes. Implementations must be safe for use by a
// single goroutine at a time; the handler serializes calls.
type Formatter interface {
	Format(e Entry) []byte
}

// State shared by a handler and all handlers derived from it.
type core struct {
	mu        sync.Mutex
	level     slog.Level
	formatter Formatter
	stream    io.Writer
	buffering bool
	pending   []Entry
}

// A [slog.Handler] that buffers records until flushed.
type Handler struct {
	core   *core
	attrs  []slog.Attr
	groups []string
}

// Creates a buffering handler at info level with a plain text formatter
// writing to stderr.
func NewHandler() *Handler {
	return &Handler{
		core: &core{
			level:     slog.LevelInfo,
			formatter: &TextFormatter{},
			stream:    os.Stderr,
			buffering: true,
		},
	}
}

// Sets the minimum level of records that are written.
func (h *Handler) SetLevel(level slog.Level) {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	h.core.level = level
}

// Sets the formatter used to render records.
func (h *Handler) SetFormatter(f Formatter) {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	h.core.formatter = f
}

// Sets the destination of rendered records.
func (h *Handler) SetStream(w io.Writer) {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	h.core.stream = w
}

// Writes buffered records that pass the current level and disables
// buffering. Subsequent records are written immediately.
func (h *Handler) Flush() {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()

	for _, e := range h.core.pending {
		h.core.write(e)
	}
	h.core.pending = nil
	h.core.buffering = false
}

// Reports whether a record at the given level would be kept. While
// buffering every record is kept, since the final level is not yet known.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	return h.core.buffering || level >= h.core.level
}

// Handles a record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Groups:  h.groups,
		Attrs:   slices.Clip(h.attrs),
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs = append(e.Attrs, a)
		return true
	})

	h.core.mu.Lock()
	defer h.core.mu.Unlock()

	if h.core.buffering {
		h.core.pending = append(h.core.pending, e)
		return nil
	}
	return h.core.write(e)
}

// Returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{
		core:   h.core,
		attrs:  append(slices.Clip(h.attrs), attrs...),
		groups: h.groups,
	}
}

// Returns a handler that tags every record with the group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{
		core:   h.core,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

// Writes one entry if it passes the level. Caller holds mu.
func (c *core) write(e Entry) error {
	if e.Level < c.level {
		return nil
	}
	_, err := c.stream.Write(c.formatter.Format(e))
	return err
}

// Whether the given file is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
