package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with typed fields and an optional collector that
// batches error lines onto the work queue.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

// Config controls level, format, and destination.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string // timestamp layout, RFC3339Nano when empty
}

// New builds a logger from cfg.
func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	zl := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		return file, nil
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs the line and, when a collector is attached, records it for
// batched publishing.
func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(l.zl.Error(), msg, fields)

	if l.collector != nil {
		fieldMap := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			fieldMap[f.Key] = f.collectValue()
		}
		l.collector.Record("error", msg, fieldMap, callSite())
	}
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)
}

// AddCollector attaches a log collector, replacing any previous one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
	}
}

// callSite reports the caller of the logging method, trimmed to a
// module-relative path.
func callSite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	if idx := strings.LastIndex(file, "opinionpointer"); idx >= 0 {
		file = file[idx+len("opinionpointer"):]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

func (f Field) addTo(event *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		event.Str(f.Key, v)
	case int:
		event.Int(f.Key, v)
	case int64:
		event.Int64(f.Key, v)
	case error:
		event.Err(v)
	default:
		event.Interface(f.Key, v)
	}
}

// collectValue flattens the value for the collector's JSON payload.
func (f Field) collectValue() interface{} {
	if err, ok := f.Value.(error); ok {
		return err.Error()
	}
	return f.Value
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Duration records a duration as whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: int(value / time.Millisecond)}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}
