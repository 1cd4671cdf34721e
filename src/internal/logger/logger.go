package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwordhash":  {},
	"password_hash": {},
	"token":         {},
	"accesstoken":   {},
	"access_token":  {},
	"authorization": {},
	"secret":        {},
}

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(New(os.Stdout, "info", "stable-wallet", "dev"))
}

// New builds a JSON slog logger tagged with the service name and environment.
func New(w io.Writer, level string, serviceName string, env string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("env", env),
	)
}

// Configure replaces the process-wide logger used by Info and Error.
func Configure(l *slog.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
}

func Default() *slog.Logger {
	return current.Load()
}

func Info(message string, fields Fields) {
	log(slog.LevelInfo, message, fields)
}

func Warn(message string, fields Fields) {
	log(slog.LevelWarn, message, fields)
}

func Error(message string, err error, fields Fields) {
	base := Fields{}
	for k, v := range fields {
		base[k] = v
	}
	if err != nil {
		base["error"] = err.Error()
	}

	log(slog.LevelError, message, base)
}

func log(level slog.Level, message string, fields Fields) {
	l := current.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.LogAttrs(context.Background(), level, message, attrs(fields)...)
}

func attrs(fields Fields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}

	sanitized, ok := SanitizePayload(fields).(map[string]any)
	if !ok {
		return []slog.Attr{slog.Any("fields", sanitized)}
	}

	out := make([]slog.Attr, 0, len(sanitized))
	for k, v := range sanitized {
		out = append(out, slog.Any(k, v))
	}
	return out
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
