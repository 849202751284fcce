// Package logger configures the process-wide zerolog logger and hands out
// per-connection child loggers.
package logger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	connIDKey    contextKey = "conn_id"
	requestIDKey contextKey = "request_id"
)

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Init initializes the global logger from LOG_LEVEL, LOG_FILE and DEV.
func Init() {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 24
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: milliTimeFormat,
		NoColor:    !isDevelopmentMode(),
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	log.Logger = log.Output(output).With().Caller().Logger()

	log.Info().
		Str("level", level.String()).
		Bool("dev", isDevelopmentMode()).
		Msg("Logger initialized")
}

func isDevelopmentMode() bool {
	return os.Getenv("DEV") == "true" || os.Getenv("DEV_MODE") == "true"
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// NewConnID generates a random 8-character alphanumeric connection ID.
func NewConnID() string { return randomID() }

// NewRequestID generates a random 8-character alphanumeric HTTP request ID.
func NewRequestID() string { return randomID() }

func randomID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("c%07d", time.Now().UnixNano()%10000000)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}

// WithConnID returns a context carrying the connection ID.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext extracts the connection ID, or empty string.
func ConnIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey).(string)
	return id
}

// WithRequestID returns a context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ForConn returns a logger tagged with a connection's ID, transport and
// remote address.
func ForConn(id, transport, remote string) zerolog.Logger {
	return log.Logger.With().
		Str("connId", id).
		Str("transport", transport).
		Str("remote", remote).
		Logger()
}

// FromContext returns a logger enriched with the connection or request ID in ctx.
func FromContext(ctx context.Context) zerolog.Logger {
	lc := log.Logger.With()
	if id := ConnIDFromContext(ctx); id != "" {
		lc = lc.Str("connId", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("requestId", id)
	}
	return lc.Logger()
}

// LogMessage logs a wire message at debug level, truncating long payloads.
func LogMessage(logger zerolog.Logger, direction, kind string, data []byte) {
	ev := logger.Debug().Str("dir", direction).Str("kind", kind)
	if len(data) > 512 {
		ev.Str("data", string(data[:512])).Bool("truncated", true).Msg("Message")
		return
	}
	if len(data) > 0 {
		ev.RawJSON("data", data)
	}
	ev.Msg("Message")
}
