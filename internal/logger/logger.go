package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the service logs.
type Options struct {
	Prefix string
	Level  string
	// File enables a rotating log file alongside console output when set.
	File   string
	Output io.Writer
}

const timeFormat = "2006-01-02 15:04:05"

// New builds the root zerolog logger.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{consoleWriter(out, opts.Prefix, false)}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  10,
			MaxAge:   15,
			Compress: true,
		}
		writers = append(writers, consoleWriter(rotating, opts.Prefix, true))
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(ParseLevel(opts.Level)), nil
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func consoleWriter(out io.Writer, prefix string, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
		FormatMessage: func(i interface{}) string {
			if prefix == "" {
				return fmt.Sprintf("%v", i)
			}
			return fmt.Sprintf("[%s] %v", prefix, i)
		},
	}
}
