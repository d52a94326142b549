package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestBuild_FieldsAndContext(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "wfs-gateway", Component: "test"}, &buf)
	l := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTypeName(ctx, "ADMINEXPRESS:commune")
	l.InfoContext(ctx, "fetched", "features", 3, "err", errors.New("boom"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1", len(lines))
	}
	got := lines[0]
	want := map[string]any{
		"msg":        "fetched",
		"level":      "info",
		"service":    "wfs-gateway",
		"component":  "test",
		"request_id": "req-1",
		"type_name":  "ADMINEXPRESS:commune",
		"features":   float64(3),
		"err":        "boom",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %q=%v want %v (line %v)", k, got[k], v, got)
		}
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", got)
	}
}

func TestSlog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	l := NewSlog(&zl)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestSlog_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info"}, &buf)
	l := NewSlog(&zl).With("a", "1").WithGroup("cache").With("key", "k")

	l.Info("x", "hit", true)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d", len(lines))
	}
	if lines[0]["a"] != "1" || lines[0]["cache.key"] != "k" || lines[0]["cache.hit"] != true {
		t.Fatalf("unexpected fields: %v", lines[0])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		" WARN": zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestFromContext_NilParent(t *testing.T) {
	l := FromContext(WithComponent(context.Background(), "x"), nil)
	if l == nil {
		t.Fatalf("expected discard logger")
	}
	l.Info().Msg("discarded")
}
