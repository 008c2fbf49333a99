// Package logger wraps logrus with the bot's (message, prefix) call shape.
// Every entry goes to the console, to ./logs when file output is enabled and
// to a Discord webhook when one is configured.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m" // Bold Red
	case LevelError:
		return "\033[31m" // Red
	case LevelWarn:
		return "\033[33m" // Yellow
	case LevelSuccess:
		return "\033[32m" // Green
	case LevelInfo:
		return "\033[36m" // Cyan
	case LevelDebug:
		return "\033[35m" // Magenta
	case LevelSystem:
		return "\033[34m" // Blue
	default:
		return "\033[0m" // Reset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0x8B6F6F
	case LevelWarn:
		return 0xD4A574
	case LevelSuccess:
		return 0x4A7C59
	case LevelInfo:
		return 0x6B7280
	case LevelDebug, LevelSystem:
		return 0x738678
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps a bot level onto the logrus level used for filtering
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const (
	colorReset = "\033[0m"

	fieldLevel  = "jazz_level"
	fieldPrefix = "prefix"
)

// Options configures a Logger
type Options struct {
	// Dir receives combined.log and error.log. Empty disables file output.
	Dir             string
	ErrorWebhookURL string
	LogsWebhookURL  string
	// Output is the console writer, os.Stdout when nil
	Output io.Writer
	Debug  bool
}

// Logger is the main logging structure
type Logger struct {
	logrus    *logrus.Logger
	logFile   *os.File
	errorFile *os.File
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger with file output in ./logs
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger. Before Init it is a console-only logger.
func Get() *Logger {
	once.Do(func() {
		logger = New(Options{Debug: true})
	})
	return logger
}

// NewLogger creates a logger writing to ./logs and the given webhooks
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	return New(Options{
		Dir:             filepath.Join(".", "logs"),
		ErrorWebhookURL: errorWebhook,
		LogsWebhookURL:  logsWebhook,
		Debug:           true,
	})
}

// New creates a logger from opts
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	lr := logrus.New()
	lr.SetOutput(out)
	lr.SetFormatter(&Formatter{Colors: true})
	lr.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		lr.SetLevel(logrus.DebugLevel)
	}

	l := &Logger{logrus: lr}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			fmt.Printf("Error creating logs directory: %v\n", err)
		}

		var err error
		l.logFile, err = os.OpenFile(filepath.Join(opts.Dir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Error opening combined log file: %v\n", err)
		}
		l.errorFile, err = os.OpenFile(filepath.Join(opts.Dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Error opening error log file: %v\n", err)
		}
		lr.AddHook(newFileHook(l.logFile, l.errorFile))
	}

	if opts.ErrorWebhookURL != "" || opts.LogsWebhookURL != "" {
		lr.AddHook(newWebhookHook(opts.ErrorWebhookURL, opts.LogsWebhookURL))
	}

	return l
}

// Logrus exposes the underlying logger, for libraries that accept one
func (l *Logger) Logrus() *logrus.Logger {
	return l.logrus
}

func (l *Logger) log(level LogLevel, message string, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).Log(level.logrusLevel(), message)
}

// Close closes the log files
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
	if l.errorFile != nil {
		l.errorFile.Close()
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Package-level functions for convenience

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) {
	Get().Critical(message, prefix)
}

// Error logs an error message using the global logger
func Error(message string, prefix string) {
	Get().Error(message, prefix)
}

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) {
	Get().Warn(message, prefix)
}

// Success logs a success message using the global logger
func Success(message string, prefix string) {
	Get().Success(message, prefix)
}

// Info logs an info message using the global logger
func Info(message string, prefix string) {
	Get().Info(message, prefix)
}

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) {
	Get().Debug(message, prefix)
}

// System logs a system message using the global logger
func System(message string, prefix string) {
	Get().System(message, prefix)
}
