package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
)

var png = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}

func newServer(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if seen != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, seen)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEngine(url string) *Engine {
	e := New("test-key", "")
	e.BaseURL = url
	return e
}

func TestExtractCourses(t *testing.T) {
	inner := `{"success":true,"error":null,"message":"ok","courses":[{"title":"Algebra","units":2.5,"grade":3.5}],"uncertain":false}`
	envelope, _ := json.Marshal(map[string]any{
		"output": []any{map[string]any{"content": []any{map[string]any{"type": "output_text", "text": inner}}}},
	})
	var seen map[string]any
	srv := newServer(t, http.StatusOK, string(envelope), &seen)

	res, err := testEngine(srv.URL).ExtractCourses(context.Background(), types.ExtractRequest{Image: png})
	if err != nil {
		t.Fatal(err)
	}
	// дробные units переводят результат в uncertain
	if !res.Uncertain || res.Error != extraction.ErrorUncertainData {
		t.Errorf("fractional units should downgrade to uncertain, got %+v", res)
	}
	if seen["model"] != DefaultModel {
		t.Errorf("model = %v", seen["model"])
	}
	if !strings.Contains(mustJSON(t, seen["input"]), "data:image/png;base64,") {
		t.Error("image should be sent as a data URL")
	}
}

func TestGenerateContent(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"output_text":"Keep it up."}`, nil)
	got, err := testEngine(srv.URL).GenerateContent(context.Background(), "hi")
	if err != nil || got != "Keep it up." {
		t.Fatalf("GenerateContent = %q, %v", got, err)
	}
}

func TestErrors(t *testing.T) {
	srv := newServer(t, http.StatusTooManyRequests, `{"error":"rate limited"}`, nil)
	if _, err := testEngine(srv.URL).GenerateContent(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status 429", err)
	}

	srv = newServer(t, http.StatusOK, `{"output":[]}`, nil)
	if _, err := testEngine(srv.URL).GenerateContent(context.Background(), "hi"); !errors.Is(err, ocr.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}

	e := New("", "")
	if _, err := e.GenerateContent(context.Background(), "hi"); err == nil {
		t.Error("missing key should fail")
	}
	if _, err := e.ExtractCourses(context.Background(), types.ExtractRequest{Image: []byte("%PDF-1.4"), Mime: "application/pdf"}); err == nil {
		t.Error("non-image MIME should fail")
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
