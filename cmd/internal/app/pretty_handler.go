package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one line per record for a developer terminal:
//
//	12:04:05.123 INFO  http.request GET /event/fest 101 3ms remote=127.0.0.1:50412
//	12:04:09.870 INFO  room.broadcast event=fest attempted=2 delivered=2 failed=0
//
// Request lines lead with method, path, status and duration. Everything else
// follows as key=value. Enabled with BEER_LOG_FORMAT=pretty.
type prettyHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool

	group  string // dotted qualifier for attrs added from here on
	prefix string // WithAttrs output, rendered once
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(applyColor(ansiDim, ts.Format("15:04:05.000"), h.color))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString(applyColor(ansiBright, r.Message, h.color))

	var req requestLine
	rest := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" || !req.take(a) {
			rest = append(rest, a)
		}
		return true
	})
	req.write(&b, h.color)

	b.WriteString(h.prefix)
	for _, a := range rest {
		h.writeAttr(&b, h.group, a)
	}

	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(applyColor(ansiDim, " @"+filepath.Base(f.File)+":"+strconv.Itoa(f.Line), h.color))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, h.group, a)
	}
	cp := *h
	cp.prefix = h.prefix + b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.group = qualify(h.group, name)
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g = qualify(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, g, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(qualify(group, shortKey(a.Key)))
	b.WriteByte('=')
	b.WriteString(h.formatValue(a.Key, a.Value))
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	s := quoteIfNeeded(valueString(v))
	switch key {
	case "event_id":
		return applyColor(ansiCyan, s, h.color)
	case "peer_id":
		return applyColor(ansiDim, s, h.color)
	case "err":
		return applyColor(ansiRed, s, h.color)
	}
	return s
}

// requestLine collects the attrs WithRequestLogging always emits so they can
// be printed positionally.
type requestLine struct {
	method, path      string
	status, durMS     int64
	hasStatus, hasDur bool
}

func (q *requestLine) take(a slog.Attr) bool {
	switch a.Key {
	case "method":
		q.method = strings.ToUpper(a.Value.String())
	case "path":
		q.path = a.Value.String()
	case "status":
		n, ok := valueToInt64(a.Value)
		if !ok {
			return false
		}
		q.status, q.hasStatus = n, true
	case "duration_ms":
		n, ok := valueToInt64(a.Value)
		if !ok {
			return false
		}
		q.durMS, q.hasDur = n, true
	case "status_class", "result":
		// Both follow from status.
		return q.hasStatus
	default:
		return false
	}
	return true
}

func (q requestLine) write(b *strings.Builder, color bool) {
	if q.method != "" {
		b.WriteByte(' ')
		b.WriteString(colorizeHTTPMethod(q.method, color))
	}
	if q.path != "" {
		b.WriteByte(' ')
		b.WriteString(applyColor(ansiCyan, q.path, color))
	}
	if q.hasStatus {
		b.WriteByte(' ')
		b.WriteString(colorizeStatusCode(int(q.status), color))
	}
	if q.hasDur {
		b.WriteByte(' ')
		b.WriteString(colorizeDurationMS(q.durMS, color))
	}
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// shortKey drops the _id suffix from the identifiers realtime lines carry.
func shortKey(k string) string {
	switch k {
	case "event_id":
		return "event"
	case "peer_id":
		return "peer"
	}
	return k
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindTime {
		return v.Time().UTC().Format(time.RFC3339)
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// levelTag pads to five columns so messages line up.
func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return applyColor(ansiRed, "ERROR", color)
	case level >= slog.LevelWarn:
		return applyColor(ansiYellow, "WARN ", color)
	case level < slog.LevelInfo:
		return applyColor(ansiMagenta, "DEBUG", color)
	default:
		return applyColor(ansiBlue, "INFO ", color)
	}
}
