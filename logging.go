package records

import (
	"context"
	"log/slog"
	"time"
)

// RequestLogEvent describes a completed transport round trip.
type RequestLogEvent struct {
	RequestID string
	Scope     Scope
	Op        string
	Method    string
	URL       string
	Resolved  bool
	Duration  time.Duration
	Err       error
}

// RequestLogger records request events.
type RequestLogger interface {
	LogRequest(RequestLogEvent)
}

// RequestLoggerFunc adapts a function to RequestLogger.
type RequestLoggerFunc func(RequestLogEvent)

// LogRequest implements RequestLogger.
func (f RequestLoggerFunc) LogRequest(event RequestLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopRequestLogger struct{}

func (noopRequestLogger) LogRequest(RequestLogEvent) {}

// SlogRequestLogger logs request events at debug level, failures at warn.
func SlogRequestLogger(logger *slog.Logger) RequestLogger {
	if logger == nil {
		return noopRequestLogger{}
	}
	return RequestLoggerFunc(func(event RequestLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("request_id", event.RequestID),
			slog.String("scope", string(event.Scope)),
			slog.String("op", event.Op),
			slog.String("method", event.Method),
			slog.String("url", event.URL),
			slog.Bool("resolved", event.Resolved),
			slog.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "records request", attrs...)
	})
}

// SlogEvaluatorLogger reports failing filter expressions through logger.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		if event.Err == nil {
			return
		}
		logger.Warn("records filter expression",
			"engine", event.Engine,
			"expr", event.Expr,
			"scope", event.Scope,
			"duration", event.Duration,
			"error", event.Err,
		)
	})
}
