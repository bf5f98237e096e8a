package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(format logFormat) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := newLineHandler(handlerConfig{
		level:  slog.LevelInfo,
		out:    newLineSink([]io.Writer{buf}, nil),
		format: format,
	})
	return slog.New(h), buf
}

func line(buf *bytes.Buffer) string { return strings.TrimSpace(buf.String()) }

func TestKVKeyOrder(t *testing.T) {
	log, buf := newTestLogger(formatKV)
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)

	LogEvent(ctx, log.With("component", CompFunnel), slog.LevelInfo, "offer.selected",
		slog.String("status", "ok"),
		slog.String("offer", "pro"),
	)

	tokens := strings.Split(line(buf), " ")
	expected := []string{"ts=", "level=INFO", "component=funnel", "event=offer.selected", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "offer=pro"}
	if len(tokens) < len(expected) {
		t.Fatalf("tokens = %v", tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONKeyOrder(t *testing.T) {
	log, buf := newTestLogger(formatJSON)
	LogEvent(WithRID(Background(), "rid-json"), log.With("component", CompRelay), slog.LevelError, "forward.fail",
		slog.String("status", "fail"),
		slog.Int64("target_id", 555),
		slog.String("err", "boom"),
		slog.String("error_kind", "HTTP_4XX"),
	)

	got := line(buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"relay"`, `"event":"forward.fail"`, `"status":"fail"`, `"rid":"rid-json"`, `"target_id":555`, `"err":"boom"`, `"error_kind":"http_4xx"`}
	pos := -1
	for _, p := range prefixes {
		idx := strings.Index(got, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%s out of order in %s", p, got)
		}
		pos = idx
	}
}

func TestPseudoIsMasked(t *testing.T) {
	log, buf := newTestLogger(formatKV)
	LogEvent(Background(), log, slog.LevelInfo, "funnel.pseudo",
		slog.String("outcome", "Already Pending"),
		slog.String("pseudo", "CoolGamer99"),
	)
	got := line(buf)
	if strings.Contains(got, "CoolGamer99") {
		t.Fatalf("pseudo leaked: %s", got)
	}
	for _, want := range []string{"pseudo=C*********9", "outcome=already_pending"} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %s in %s", want, got)
		}
	}
}

func TestSchemaRules(t *testing.T) {
	log, buf := newTestLogger(formatJSON)
	LogEvent(Background(), log, slog.LevelWarn, "relay.send",
		slog.String("offer", "vip"),
		slog.String("error_kind", "teapot"),
		slog.Int64("target_id", 0),
		slog.String("status", "Skip"),
	)
	got := line(buf)
	for _, want := range []string{`"offer":"none"`, `"error_kind":"unknown"`, `"status":"skip"`, `"level":"WARN"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %s in %s", want, got)
		}
	}
	if strings.Contains(got, "target_id") {
		t.Fatalf("zero target_id kept: %s", got)
	}
}

func TestMaskPseudo(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"A":          "*",
		"Ab":         "**",
		"Abc":        "A*c",
		" Zoé_42 ":   "Z****2",
		"joueur\x00": "j****r",
	}
	for in, want := range cases {
		if got := MaskPseudo(in); got != want {
			t.Fatalf("MaskPseudo(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompactRID(t *testing.T) {
	raw := BuildRID(123, 456, 789)
	if raw != "123:456:789" {
		t.Fatalf("rid = %s", raw)
	}
	if got := CompactRID(raw); got != "3f.co.lx" {
		t.Fatalf("compact = %s", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("compact = %s", got)
	}

	log, buf := newTestLogger(formatKV)
	LogEvent(WithRID(Background(), raw), log, slog.LevelInfo, "rid.test")
	got := line(buf)
	if !strings.Contains(got, "rid=3f.co.lx") || strings.Contains(got, "rid_full=") || !strings.Contains(got, "component=app") {
		t.Fatalf("kv line = %s", got)
	}

	log, buf = newTestLogger(formatJSON)
	LogEvent(WithRID(Background(), raw), log, slog.LevelInfo, "rid.test")
	if got := line(buf); !strings.Contains(got, `"rid_full":"123:456:789"`) {
		t.Fatalf("json line = %s", got)
	}
}

func TestDurationsInMilliseconds(t *testing.T) {
	log, buf := newTestLogger(formatKV)
	LogEvent(Background(), log, slog.LevelInfo, "timing",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("startup_duration", 20*time.Millisecond),
		slog.Duration("elapsed_ms", 3*time.Millisecond),
	)
	got := line(buf)
	for _, want := range []string{"duration_ms=2", "startup_duration_ms=20", "elapsed_ms=3"} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %s in %s", want, got)
		}
	}
}

func TestBelowLevelIsDropped(t *testing.T) {
	log, buf := newTestLogger(formatKV)
	LogEvent(Background(), log, slog.LevelDebug, "noise")
	if got := line(buf); got != "" {
		t.Fatalf("debug line written: %s", got)
	}
}

func TestGroupsAndHandlerContext(t *testing.T) {
	log, buf := newTestLogger(formatKV)
	ctx := WithHandler(Background(), "cb:start_flow")
	log.WithGroup("db").LogAttrs(ctx, slog.LevelInfo, "store.ready", slog.String("driver", "sqlite"))
	got := line(buf)
	for _, want := range []string{"db.driver=sqlite", "handler=cb:start_flow", "event=store.ready"} {
		if !strings.Contains(got, want) {
			t.Fatalf("want %s in %s", want, got)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLineSink(t *testing.T) {
	ok := &bytes.Buffer{}
	s := newLineSink([]io.Writer{failingWriter{}, ok}, nil)
	if err := s.Write([]byte("a\n")); err == nil {
		t.Fatal("expected error from failing output")
	}
	if ok.String() != "a\n" {
		t.Fatalf("healthy output = %q", ok.String())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write([]byte("b\n")); !errors.Is(err, errSinkClosed) {
		t.Fatalf("write after close = %v", err)
	}
}

func TestEveryNSampler(t *testing.T) {
	var s everyN
	s.Set(3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	for spec, n := range map[string]int{"": 50, "10": 10, "1/20": 20, "0": 1, "off": 1, "junk": 50} {
		if got := parseSampleEvery(spec); got != n {
			t.Fatalf("parseSampleEvery(%q) = %d, want %d", spec, got, n)
		}
	}
}
