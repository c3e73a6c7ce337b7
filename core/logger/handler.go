package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

// defaultKeyOrder pins well-known keys to the front of every log line so the
// output stays scannable regardless of call-site attribute order.
var defaultKeyOrder = []string{
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
	"handler",
	"step",
	"cb_key",
	"outcome",
	"duration_ms",
	"event_id",
	"photo_id",
	"photos",
	"style",
	"count",
	"payload",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as single-line KV or JSON with a fixed
// key order and context-derived correlation attributes.
type structuredHandler struct {
	cfg   handlerConfig
	attrs []slog.Attr
	group string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled reports whether records at the given level are emitted.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.level != nil {
		min = h.cfg.level.Level()
	}
	return level >= min
}

// WithAttrs returns a handler that includes the given attributes in every record.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that prefixes subsequent attribute keys.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

type field struct {
	key string
	val slog.Value
}

// Handle renders a record into the configured writer.
func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	fields := make([]field, 0, rec.NumAttrs()+len(h.attrs)+8)
	seen := make(map[string]int, rec.NumAttrs()+len(h.attrs)+8)

	put := func(key string, val slog.Value) {
		if key == "" {
			return
		}
		if h.group != "" {
			key = h.group + "." + key
		}
		val = val.Resolve()
		if idx, ok := seen[key]; ok {
			fields[idx].val = val
			return
		}
		seen[key] = len(fields)
		fields = append(fields, field{key: key, val: val})
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	for _, a := range h.attrs {
		put(a.Key, a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		put(a.Key, a.Value)
		return true
	})

	// Event falls back to the record message when not set explicitly.
	if _, ok := seen["event"]; !ok && rec.Message != "" {
		put("event", slog.StringValue(rec.Message))
	}

	// Context correlation wins only when the attribute is absent.
	if _, ok := seen["rid"]; !ok {
		if rid := RIDFrom(ctx); rid != "" {
			put("rid", slog.StringValue(rid))
		}
	}
	if _, ok := seen["update_id"]; !ok {
		if id := UpdateIDFrom(ctx); id != 0 {
			put("update_id", slog.IntValue(id))
		}
	}
	if _, ok := seen["user_id"]; !ok {
		if id := UserIDFrom(ctx); id != 0 {
			put("user_id", slog.Int64Value(id))
		}
	}
	if _, ok := seen["chat_id"]; !ok {
		if id := ChatIDFrom(ctx); id != 0 {
			put("chat_id", slog.Int64Value(id))
		}
	}
	if _, ok := seen["handler"]; !ok {
		if name := HandlerFrom(ctx); name != "" {
			put("handler", slog.StringValue(name))
		}
	}

	ordered := h.orderFields(fields, seen)

	var b strings.Builder
	b.Grow(256)
	switch h.cfg.format {
	case formatKV:
		h.renderKV(&b, ts, rec.Level, ordered)
	default:
		h.renderJSON(&b, ts, rec.Level, ordered)
	}
	b.WriteByte('\n')

	if h.cfg.writer == nil {
		return nil
	}
	return h.cfg.writer.Write([]byte(b.String()))
}

func (h *structuredHandler) orderFields(fields []field, seen map[string]int) []field {
	ordered := make([]field, 0, len(fields))
	taken := make(map[string]bool, len(fields))
	for _, key := range h.cfg.keyOrder {
		if idx, ok := seen[key]; ok {
			ordered = append(ordered, fields[idx])
			taken[key] = true
		}
	}
	for _, f := range fields {
		if !taken[f.key] {
			ordered = append(ordered, f)
		}
	}
	return ordered
}

func (h *structuredHandler) renderKV(b *strings.Builder, ts time.Time, level slog.Level, fields []field) {
	b.WriteString("ts=")
	b.WriteString(ts.Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString(" level=")
	b.WriteString(level.String())
	for _, f := range fields {
		var text string
		if f.key == "rid" {
			text = CompactRID(f.val.String())
		} else {
			text = renderValueText(f.val)
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		if strings.ContainsAny(text, " =\"") {
			b.WriteString(strconv.Quote(text))
		} else {
			b.WriteString(text)
		}
	}
}

func (h *structuredHandler) renderJSON(b *strings.Builder, ts time.Time, level slog.Level, fields []field) {
	b.WriteString(`{"ts":`)
	b.WriteString(strconv.Quote(ts.Format(time.RFC3339Nano)))
	b.WriteString(`,"level":`)
	b.WriteString(strconv.Quote(level.String()))
	for _, f := range fields {
		if f.key == "rid" {
			raw := f.val.String()
			writeJSONField(b, "rid", slog.StringValue(CompactRID(raw)))
			if compact := CompactRID(raw); compact != raw {
				writeJSONField(b, "rid_full", slog.StringValue(raw))
			}
			continue
		}
		writeJSONField(b, f.key, f.val)
	}
	writeJSONField(b, "ts_unix_nano", slog.Int64Value(ts.UnixNano()))
	b.WriteByte('}')
}

func writeJSONField(b *strings.Builder, key string, val slog.Value) {
	b.WriteByte(',')
	b.WriteString(strconv.Quote(key))
	b.WriteByte(':')
	switch val.Kind() {
	case slog.KindInt64:
		b.WriteString(strconv.FormatInt(val.Int64(), 10))
	case slog.KindUint64:
		b.WriteString(strconv.FormatUint(val.Uint64(), 10))
	case slog.KindFloat64:
		b.WriteString(strconv.FormatFloat(val.Float64(), 'f', -1, 64))
	case slog.KindBool:
		b.WriteString(strconv.FormatBool(val.Bool()))
	default:
		b.WriteString(strconv.Quote(renderValueText(val)))
	}
}

func renderValueText(val slog.Value) string {
	switch val.Kind() {
	case slog.KindString:
		return val.String()
	case slog.KindDuration:
		return val.Duration().String()
	case slog.KindTime:
		return val.Time().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val.Any())
	}
}
