package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured logger over zerolog. The zero value is not
// usable; build one with New, NewWriter or Nop.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout" validate:"required"`
	TimeFormat string `yaml:"time_format"`
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// NewWriter builds a JSON logger on w at debug level.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	zerolog.DurationFieldUnit = time.Millisecond

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return f, nil
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.apply(e)
	}
	e.Msg(msg)
}

// With returns a child logger that stamps every event with fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.key, f.value)
	}
	return &Logger{zl: ctx.Logger()}
}

// Component tags events with the emitting component.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

// Field is one structured key/value pair.
type Field struct {
	key   string
	value any
	apply func(*zerolog.Event)
}

func String(key, v string) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Str(key, v) }}
}

func Int(key string, v int) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Int(key, v) }}
}

func Int64(key string, v int64) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Int64(key, v) }}
}

func Float(key string, v float64) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Float64(key, v) }}
}

func Bool(key string, v bool) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Bool(key, v) }}
}

// Duration logs v in milliseconds.
func Duration(key string, v time.Duration) Field {
	return Field{key, v.Milliseconds(), func(e *zerolog.Event) { e.Int64(key, v.Milliseconds()) }}
}

func Strings(key string, v []string) Field {
	return String(key, strings.Join(v, ", "))
}

func Any(key string, v any) Field {
	return Field{key, v, func(e *zerolog.Event) { e.Interface(key, v) }}
}

// Error logs err under "error". A nil err is omitted.
func Error(err error) Field {
	var v any
	if err != nil {
		v = err.Error()
	}
	return Field{"error", v, func(e *zerolog.Event) { e.Err(err) }}
}
