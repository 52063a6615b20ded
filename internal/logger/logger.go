package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/dytgt/internal/constants"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger

	logPath string
)

// Config holds logger configuration
type Config struct {
	Debug     bool
	ConfigDir string
	// Format is text (default), logfmt or json
	Format string
}

// Init points the global logger at <ConfigDir>/logs/dytgt.log.
// Normal mode is silent on stderr; debug mirrors to it.
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logPath = filepath.Join(logDir, constants.AppName+".log")

	var w io.Writer = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	if cfg.Debug {
		w = io.MultiWriter(os.Stderr, w)
	}

	SetOutput(w, cfg.Debug)
	Logger.SetFormatter(formatter(cfg.Format))
	return nil
}

// Path returns the active log file, or "" before Init
func Path() string {
	return logPath
}

// SetOutput replaces the global logger with one writing to w.
// Debug lowers the level to debug and reports callers.
func SetOutput(w io.Writer, debug bool) {
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.WarnLevel,
		Prefix:          constants.AppName,
	}
	if debug {
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
		// skip logAt and the exported helper
		opts.CallerOffset = 2
	}
	Logger = log.NewWithOptions(w, opts)
}

func formatter(name string) log.Formatter {
	switch name {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func logAt(level log.Level, msg string, keyvals []interface{}) {
	if Logger == nil {
		return
	}
	Logger.Log(level, msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) { logAt(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...interface{})  { logAt(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...interface{})  { logAt(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...interface{}) { logAt(log.ErrorLevel, msg, keyvals) }

// Fatal logs msg and exits with status 1
func Fatal(msg string, keyvals ...interface{}) {
	logAt(log.FatalLevel, msg, keyvals)
	os.Exit(1)
}

// With returns a sub-logger carrying keyvals, such as a component name.
// Before Init it returns a logger that discards output.
func With(keyvals ...interface{}) *log.Logger {
	if Logger == nil {
		return log.New(io.Discard)
	}
	return Logger.With(keyvals...)
}
