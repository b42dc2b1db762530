// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger configures the process-wide slog logger. Records that do
// not originate from this module are dropped unless the level is debug.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const modulePrefix = "github.com/kadirpekel/mcpgateway"

// Output formats.
const (
	FormatSimple  = "simple"
	FormatVerbose = "verbose"
	FormatJSON    = "json"
)

var level = new(slog.LevelVar)

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init installs the default logger. The level can be changed afterwards
// with SetLevel without rebuilding handlers.
func Init(lvl slog.Level, output io.Writer, format string) *slog.Logger {
	level.Set(lvl)
	l := New(output, level, format)
	slog.SetDefault(l)
	return l
}

// SetLevel changes the level of the logger installed by Init.
func SetLevel(lvl slog.Level) {
	if level.Level() != lvl {
		slog.Info("Log level changed", "from", level.Level().String(), "to", lvl.String())
	}
	level.Set(lvl)
}

// Level reports the current level of the logger installed by Init.
func Level() slog.Level {
	return level.Level()
}

// New builds a logger writing to output. Unknown formats fall back to the
// standard slog text format.
func New(output io.Writer, lvl slog.Leveler, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	case FormatSimple, "", FormatVerbose:
		handler = &lineHandler{
			out:      &lockedWriter{w: output},
			level:    lvl,
			useColor: isTerminal(output),
			verbose:  format == FormatVerbose,
		}
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(&filteringHandler{handler: handler, level: lvl})
}

// OpenLogFile opens or creates a log file for appending.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// filteringHandler drops third-party records unless debugging.
type filteringHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

func (h *filteringHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level() && h.handler.Enabled(ctx, lvl)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.level.Level() > slog.LevelDebug && !fromModule(record.PC) {
		return nil
	}
	return h.handler.Handle(ctx, record)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), level: h.level}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), level: h.level}
}

func fromModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return strings.HasPrefix(frame.Function, modulePrefix)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// lineHandler writes "LEVEL message k=v" lines, prefixed by a timestamp in
// verbose mode.
type lineHandler struct {
	out      *lockedWriter
	level    slog.Leveler
	useColor bool
	verbose  bool
	attrs    string
	group    string
}

func (h *lineHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	var buf strings.Builder

	if h.verbose && !record.Time.IsZero() {
		buf.WriteString(record.Time.Format(time.DateTime))
		buf.WriteByte(' ')
	}

	levelStr := record.Level.String()
	if h.useColor {
		buf.WriteString(levelColor(record.Level))
		buf.WriteString(levelStr)
		buf.WriteString("\033[0m")
	} else {
		buf.WriteString(levelStr)
	}
	buf.WriteByte(' ')
	buf.WriteString(record.Message)
	buf.WriteString(h.attrs)

	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var buf strings.Builder
	buf.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&buf, h.group, a)
	}
	clone := *h
	clone.attrs = buf.String()
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func writeAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(buf, p, ga)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(a.Value.String())
}

func levelColor(lvl slog.Level) string {
	switch {
	case lvl >= slog.LevelError:
		return "\033[31m"
	case lvl >= slog.LevelWarn:
		return "\033[33m"
	case lvl >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}
