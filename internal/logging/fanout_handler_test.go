package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(infoHandler, debugHandler))
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout to accept debug when any handler does")
	}

	logger.Debug("tick detail")
	logger.Info("timer started")

	if strings.Contains(infoBuf.String(), "tick detail") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "timer started") {
		t.Fatalf("info handler missing info record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "tick detail") || !strings.Contains(debugBuf.String(), "timer started") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(h).With("project_id", "p-1").WithGroup("timer")
	logger.Info("stopped", "elapsed", "90s")

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"project_id":"p-1"`) {
			t.Fatalf("expected project attr, got %s", out)
		}
		if !strings.Contains(out, `"timer":{"elapsed":"90s"}`) {
			t.Fatalf("expected grouped attr, got %s", out)
		}
	}
}
