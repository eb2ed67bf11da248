// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// levelPrefixes maps zerolog level names onto the short bracketed tags
// printed by the console writer.  Verbose is carried as zerolog's debug
// level and Debug as trace.
var levelPrefixes = map[string]string{ //nolint:gochecknoglobals
	zerolog.LevelErrorValue: "[ERR]",
	zerolog.LevelWarnValue:  "[WRN]",
	zerolog.LevelInfoValue:  "[INF]",
	zerolog.LevelDebugValue: "[VRB]",
	zerolog.LevelTraceValue: "[DBG]",
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  Output is produced by zerolog, either through a
// console writer (the default) or as raw JSON lines.
type Logger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timestamps bool // if true, prepend timestamps
	json       bool
	fields     []field
	zl         zerolog.Logger
}

type field struct {
	key   string
	value interface{}
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetJSON switches between console and JSON-lines output.
func (l *Logger) SetJSON(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.json = on
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that attaches key=value to every line.
// The child shares the parent's output settings at the time of the call.
func (l *Logger) With(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{
		level:      l.level,
		output:     l.output,
		timestamps: l.timestamps,
		json:       l.json,
		fields:     append(append([]field(nil), l.fields...), field{key, value}),
	}
	child.rebuild()
	return child
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.event(zerolog.TraceLevel).Msgf(format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()
	return zl.WithLevel(level)
}

// rebuild recreates the zerolog pipeline.  Callers hold l.mu (or own l
// exclusively during construction).
func (l *Logger) rebuild() {
	var w io.Writer = l.output
	if !l.json {
		cw := zerolog.ConsoleWriter{
			Out:     l.output,
			NoColor: true,
			FormatLevel: func(i interface{}) string {
				if p, ok := levelPrefixes[fmt.Sprint(i)]; ok {
					return p
				}
				return "[???]"
			},
			PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		}
		if l.timestamps {
			cw.TimeFormat = "15:04:05.000"
			cw.PartsOrder = []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.MessageFieldName,
			}
		}
		w = cw
	}

	ctx := zerolog.New(w).Level(zerologLevel(l.level)).With()
	if l.timestamps || l.json {
		ctx = ctx.Timestamp()
	}
	for _, f := range l.fields {
		ctx = ctx.Interface(f.key, f.value)
	}
	l.zl = ctx.Logger()
}

func zerologLevel(v LogLevel) zerolog.Level {
	switch {
	case v <= LogQuiet:
		return zerolog.ErrorLevel
	case v == LogNormal:
		return zerolog.InfoLevel
	case v == LogVerbose:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
