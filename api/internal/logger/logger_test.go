package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromCore(core)

	l.With("engine", "gemini").Info("extract",
		"api_key", "sk-123",
		"Authorization", "Bearer x",
		"image_b64", "aGVsbG8=",
		"image", []byte{1, 2, 3},
		"courses", 4)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	want := map[string]interface{}{
		"engine":        "gemini",
		"api_key":       "[REDACTED]",
		"Authorization": "[REDACTED]",
		"image_b64":     "[8 chars]",
		"image":         "[3 bytes]",
		"courses":       int64(4),
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %#v, want %#v", k, fields[k], v)
		}
	}
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"development", "production"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Debug("ok")
	}
	NewNop().Error("discarded", "token", "x")
}
