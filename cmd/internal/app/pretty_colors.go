package app

import (
	"log/slog"
	"strconv"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func applyColor(code, s string, color bool) string {
	if !color || s == "" {
		return s
	}
	return code + s + ansiReset
}

func colorizeHTTPMethod(m string, color bool) string {
	switch m {
	case "GET":
		return applyColor(ansiGreen, m, color)
	case "POST":
		return applyColor(ansiYellow, m, color)
	case "DELETE":
		return applyColor(ansiRed, m, color)
	default:
		return applyColor(ansiMagenta, m, color)
	}
}

func colorizeStatusCode(code int, color bool) string {
	s := strconv.Itoa(code)
	switch {
	case code >= 500:
		return applyColor(ansiRed, s, color)
	case code >= 400:
		return applyColor(ansiYellow, s, color)
	case code >= 300:
		return applyColor(ansiCyan, s, color)
	default:
		return applyColor(ansiGreen, s, color)
	}
}

// Slow requests stand out; websocket sessions are long by nature and
// report their own duration at close.
func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	switch {
	case ms >= 1000:
		return applyColor(ansiRed, s, color)
	case ms >= 250:
		return applyColor(ansiYellow, s, color)
	default:
		return applyColor(ansiDim, s, color)
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	default:
		return 0, false
	}
}
