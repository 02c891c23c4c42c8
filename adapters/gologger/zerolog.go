// Package gologger adapts zerolog to the go-logger contracts checkout logs
// through.
package gologger

import (
	"bufio"
	"context"
	"io"
	"maps"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/rs/zerolog"
)

// bufferedWriter serializes writes so several named loggers can share one
// buffer and one Flush.
type bufferedWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *bufferedWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// ZerologProvider hands out JSON loggers that share a buffered writer.
type ZerologProvider struct {
	writer *bufferedWriter
	level  zerolog.Level
}

// NewZerologProvider writes JSON lines to out. Unknown levels fall back to
// info.
func NewZerologProvider(out io.Writer, level string) *ZerologProvider {
	parsed, err := zerolog.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return &ZerologProvider{
		writer: &bufferedWriter{buf: bufio.NewWriter(out)},
		level:  parsed,
	}
}

func (p *ZerologProvider) GetLogger(name string) glog.Logger {
	base := zerolog.New(p.writer).Level(p.level).With().Timestamp()
	if name = strings.TrimSpace(name); name != "" {
		base = base.Str("logger", name)
	}
	return &ZerologLogger{base: base.Logger(), writer: p.writer}
}

// Flush drains every logger handed out by the provider.
func (p *ZerologProvider) Flush() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Flush()
}

// ZerologLogger implements glog.Logger and glog.FieldsLogger. Args are read
// as alternating key/value pairs.
type ZerologLogger struct {
	base   zerolog.Logger
	writer *bufferedWriter
	fields map[string]any
}

func (l *ZerologLogger) Trace(msg string, args ...any) { l.emit(zerolog.TraceLevel, msg, args) }
func (l *ZerologLogger) Debug(msg string, args ...any) { l.emit(zerolog.DebugLevel, msg, args) }
func (l *ZerologLogger) Info(msg string, args ...any)  { l.emit(zerolog.InfoLevel, msg, args) }
func (l *ZerologLogger) Warn(msg string, args ...any)  { l.emit(zerolog.WarnLevel, msg, args) }
func (l *ZerologLogger) Error(msg string, args ...any) { l.emit(zerolog.ErrorLevel, msg, args) }

// Fatal logs at fatal level without exiting the process.
func (l *ZerologLogger) Fatal(msg string, args ...any) { l.emit(zerolog.FatalLevel, msg, args) }

func (l *ZerologLogger) WithContext(ctx context.Context) glog.Logger {
	base := l.base
	if ctx != nil {
		base = base.With().Ctx(ctx).Logger()
	}
	return &ZerologLogger{base: base, writer: l.writer, fields: maps.Clone(l.fields)}
}

func (l *ZerologLogger) WithFields(fields map[string]any) glog.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(merged, l.fields)
	maps.Copy(merged, fields)
	return &ZerologLogger{base: l.base, writer: l.writer, fields: merged}
}

func (l *ZerologLogger) Flush() error {
	if l == nil || l.writer == nil {
		return nil
	}
	return l.writer.Flush()
}

func (l *ZerologLogger) emit(level zerolog.Level, msg string, args []any) {
	event := l.base.WithLevel(level)
	if event == nil {
		return
	}
	if len(l.fields) > 0 {
		event = event.Fields(l.fields)
	}
	if len(args) > 0 {
		event = event.Fields(args)
	}
	event.Msg(msg)
}

var (
	_ glog.Logger         = (*ZerologLogger)(nil)
	_ glog.FieldsLogger   = (*ZerologLogger)(nil)
	_ glog.LoggerProvider = (*ZerologProvider)(nil)
)
