// Package corelog builds the zap.Logger every paperback-core binary and
// library package logs through. It mirrors the teacher's
// config.LoggingConfig/LoggerConfig.Prepare split-core design: a
// colorized development console encoder for low-priority output, a
// dedicated stderr core for error-and-above entries, and a JSON file core
// for persistent logs. session.New accepts a nil-safe *zap.Logger,
// defaulting to zap.NewNop(); the parsers and the other internal packages
// take no logger.
package corelog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Level selects console/file verbosity, matching the teacher's
// "none"/"debug"/"normal" LoggerConfig.Level enum.
type Level string

const (
	LevelNone   Level = "none"
	LevelNormal Level = "normal"
	LevelDebug  Level = "debug"
)

// Config describes where and how verbosely to log.
type Config struct {
	ConsoleLevel Level
	FilePath     string // empty disables file logging
	FileAppend   bool   // false truncates the file on open
}

// New builds a logger per cfg. A zero Config produces a valid logger that
// writes nothing.
func New(cfg Config) (*zap.Logger, error) {
	consoleLP, consoleHP := consoleCores(cfg.ConsoleLevel)
	fCore, err := fileCore(cfg.FilePath, cfg.FileAppend)
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewTee(consoleHP, consoleLP, fCore), zap.AddCaller()), nil
}

func consoleCores(level Level) (lowPriority, highPriority zapcore.Core) {
	isHigh := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool { return lvl >= zapcore.ErrorLevel })

	var minLevel zapcore.Level
	switch level {
	case LevelDebug:
		minLevel = zapcore.DebugLevel
	case LevelNormal:
		minLevel = zapcore.InfoLevel
	default:
		return zapcore.NewNopCore(), zapcore.NewNopCore()
	}
	isLow := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return minLevel <= lvl && lvl < zapcore.ErrorLevel
	})
	return zapcore.NewCore(consoleEncoder(os.Stdout), zapcore.Lock(os.Stdout), isLow),
		zapcore.NewCore(consoleEncoder(os.Stderr), zapcore.Lock(os.Stderr), isHigh)
}

// consoleEncoder builds a development console encoder, enabling
// colorized level output only when stream is a terminal — the same check
// the teacher's EnableColorOutput performs via golang.org/x/term.
func consoleEncoder(stream *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if term.IsTerminal(int(stream.Fd())) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// fileCore is JSON-encoded (unlike the teacher's console-formatted file
// log) since persistent logs here are meant for downstream aggregation
// rather than human review of a single run.
func fileCore(path string, appendMode bool) (zapcore.Core, error) {
	if path == "" {
		return zapcore.NewNopCore(), nil
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zapcore.NewCore(enc, zapcore.Lock(f), zap.DebugLevel), nil
}
