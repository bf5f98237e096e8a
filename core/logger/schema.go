package logger

import (
	"log/slog"
	"strings"
)

// keyOrder fixes the position of known keys in a line. Other keys follow in
// alphabetical order.
var keyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"state",
	"expected",
	"offer",
	"pseudo",
	"outcome",
	"step",
	"duration_ms",
	"target_id",
	"admin_id",
	"payload",
	"text_len",
	"lang",
	"username",
	"driver",
	"mode",
	"listen",
	"addr",
	"public_url",
	"db",
	"host",
	"port",
	"action",
	"endpoint",
	"err",
	"error",
	"error_kind",
	"attempts",
	"elapsed_ms",
}

var keyRank = func() map[string]int {
	m := make(map[string]int, len(keyOrder))
	for i, k := range keyOrder {
		m[k] = i
	}
	return m
}()

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

var (
	statuses   = set("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	offers     = set("beginner", "pro")
	errorKinds = set("timeout", "dns", "dial", "tls", "http_4xx", "http_5xx", "unknown")
)

// fieldRule rewrites the value of one key. Returning false drops the field.
type fieldRule func(any) (any, bool)

var fieldRules = map[string]fieldRule{
	"status":     enum(statuses, ""),
	"offer":      enum(offers, "none"),
	"error_kind": enum(errorKinds, "unknown"),
	"outcome":    snake,
	"step":       snake,
	"target_id":  positiveID,
	"admin_id":   positiveID,
	"pseudo":     masked,
}

// applySchema normalizes the bot's own keys and removes empty values.
func applySchema(f fields) {
	for k, v := range f {
		if rule, ok := fieldRules[k]; ok {
			v, ok = rule(v)
			if !ok {
				delete(f, k)
				continue
			}
			f[k] = v
		}
		if isEmpty(v) {
			delete(f, k)
		}
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// enum lowercases a value and maps anything outside allowed to fallback. An
// empty fallback keeps unknown values.
func enum(allowed map[string]struct{}, fallback string) fieldRule {
	return func(v any) (any, bool) {
		s, ok := v.(string)
		if !ok {
			return v, true
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return nil, false
		}
		if _, known := allowed[s]; known || fallback == "" {
			return s, true
		}
		return fallback, true
	}
}

func snake(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return v, true
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_"), s != ""
}

func positiveID(v any) (any, bool) {
	switch id := v.(type) {
	case int64:
		return id, id > 0
	case uint64:
		return id, id > 0
	}
	return v, true
}

func masked(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return MaskPseudo(s), s != ""
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
