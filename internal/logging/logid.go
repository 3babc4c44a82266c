package logging

import "context"

type sessionIDKey struct{}

type sessionCapable interface {
	WithSession(string) Logger
}

// ContextWithSessionID stores the settings session id on ctx.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the session id stored on ctx, or "".
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sessionID, _ := ctx.Value(sessionIDKey{}).(string)
	return sessionID
}

// WithSession returns a logger that tags every line with a session id.
func WithSession(logger Logger, sessionID string) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if sessionID == "" {
		return logger
	}
	if capable, ok := logger.(sessionCapable); ok {
		return capable.WithSession(sessionID)
	}
	return &sessionLogger{logger: logger, sessionID: sessionID}
}

// FromContext returns a logger tagged with the session id found in ctx, if any.
func FromContext(ctx context.Context, logger Logger) Logger {
	return WithSession(logger, SessionIDFromContext(ctx))
}

type sessionLogger struct {
	logger    Logger
	sessionID string
}

func (l *sessionLogger) Debug(format string, args ...any) {
	l.logger.Debug(prefixSession(l.sessionID, format), args...)
}

func (l *sessionLogger) Info(format string, args ...any) {
	l.logger.Info(prefixSession(l.sessionID, format), args...)
}

func (l *sessionLogger) Warn(format string, args ...any) {
	l.logger.Warn(prefixSession(l.sessionID, format), args...)
}

func (l *sessionLogger) Error(format string, args ...any) {
	l.logger.Error(prefixSession(l.sessionID, format), args...)
}

func prefixSession(sessionID, format string) string {
	return "session=" + sessionID + " " + format
}
