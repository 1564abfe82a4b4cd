package util

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Severity is the severity of an audit log entry
type Severity string

// Audit severities
const (
	DEBUG   Severity = "debug"
	INFO    Severity = "info"
	NOTICE  Severity = "notice"
	WARNING Severity = "warning"
	ERROR   Severity = "error"
)

// LogContext is the interface that every operation context implements so
// that log entries can be correlated
type LogContext interface {
	AppName() string
	SessionID() string
	LogRootDir() string
}

// BasicLogContext is a LogContext for code that has no session of its own
type BasicLogContext struct {
	sessionID string
}

// AppName returns the application name
func (c *BasicLogContext) AppName() string {
	return AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *BasicLogContext) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = PsuUUID()
	}
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *BasicLogContext) LogRootDir() string {
	return ""
}

// LogAuditInput is the input for LogAudit
type LogAuditInput struct {
	Actor    string
	Action   string
	Actee    string
	Message  string
	Severity Severity
}

var (
	loggerOnce sync.Once
	rootLogger zerolog.Logger
)

// SetLogOutput replaces the destination of all log entries. Tests use it to
// capture output.
func SetLogOutput(w io.Writer) {
	loggerOnce.Do(func() {})
	rootLogger = zerolog.New(w).With().Timestamp().Logger()
}

// Logger returns the logger bound to the given context
func Logger(ctx LogContext) zerolog.Logger {
	loggerOnce.Do(initLogger)
	if ctx == nil {
		return rootLogger
	}
	return rootLogger.With().
		Str("app", ctx.AppName()).
		Str("session", ctx.SessionID()).
		Logger()
}

func initLogger() {
	var w io.Writer = os.Stderr
	if pretty, _ := strconv.ParseBool(os.Getenv(LOG_PRETTY)); pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	rootLogger = zerolog.New(w).With().Timestamp().Logger()
}

func levelFor(severity Severity) zerolog.Level {
	switch severity {
	case DEBUG:
		return zerolog.DebugLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogAudit records who did what to whom
func LogAudit(ctx LogContext, input LogAuditInput) {
	logger := Logger(ctx)
	logger.WithLevel(levelFor(input.Severity)).
		Str("actor", input.Actor).
		Str("action", input.Action).
		Str("actee", input.Actee).
		Msg(input.Message)
}

// LogInfo logs an informational message
func LogInfo(ctx LogContext, message string) {
	logger := Logger(ctx)
	logger.Info().Msg(message)
}

// LogAlert logs a warning-level message
func LogAlert(ctx LogContext, message string) {
	logger := Logger(ctx)
	logger.Warn().Msg(message)
}

// LogSimpleErr logs the message and the error, and returns an error
// carrying both
func LogSimpleErr(ctx LogContext, message string, err error) error {
	logger := Logger(ctx)
	logger.Error().Err(err).Msg(message)
	if err == nil {
		return fmt.Errorf("%s", message)
	}
	return fmt.Errorf("%s %w", message, err)
}

// Error is a detailed error that can be logged with its upstream response
type Error struct {
	LogMsg     string
	SimpleMsg  string
	Response   string
	URL        string
	HTTPStatus int
	Kind       Kind
}

// Error implements the error interface
func (e Error) Error() string {
	if e.SimpleMsg != "" {
		return e.SimpleMsg
	}
	return e.LogMsg
}

// Log logs the error in full and returns an error suitable for callers.
// The returned error carries the Kind of e, DataAccess when unset.
func (e Error) Log(ctx LogContext, message string) error {
	logger := Logger(ctx)
	event := logger.Error().
		Str("url", e.URL).
		Int("status", e.HTTPStatus).
		Str("response", e.Response)
	if e.LogMsg != "" {
		event = event.Str("detail", e.LogMsg)
	}
	if message == "" {
		message = e.Error()
	}
	event.Msg(message)

	kind := e.Kind
	if kind == "" {
		kind = DataAccess
	}
	return &KindError{Kind: kind, Err: e}
}
