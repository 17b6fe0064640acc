package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/store"
)

type fakeEngine struct {
	res      extraction.Result
	err      error
	text     string
	calls    int
	prompt   string
	lastMime string
	deadline time.Duration
}

func (f *fakeEngine) Name() string     { return "gemini" }
func (f *fakeEngine) GetModel() string { return "test-model" }

func (f *fakeEngine) ExtractCourses(ctx context.Context, in types.ExtractRequest) (extraction.Result, error) {
	f.calls++
	f.lastMime = in.Mime
	if dl, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(dl)
	}
	return f.res, f.err
}

func (f *fakeEngine) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.text, f.err
}

var jpegB64 = base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 4})

func newTestServer(eng *fakeEngine, opts Options) http.Handler {
	mux := http.NewServeMux()
	New(&ocr.Engines{Gemini: eng}, opts).Routes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func okExtraction() extraction.Result {
	return extraction.Result{Success: true, Message: "ok", Courses: []course.CourseData{{Title: "Algebra", Units: 3, Grade: course.GradeOf(3.5)}}}
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(&fakeEngine{}, Options{}), http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestExtract_CachesCertainSuccess(t *testing.T) {
	eng := &fakeEngine{res: okExtraction()}
	srv := newTestServer(eng, Options{Cache: store.NewExtractCache(time.Minute, 0)})
	body := types.ExtractInput{ImageB64: "data:image/jpeg;base64," + jpegB64}

	rec := do(t, srv, http.MethodPost, "/v1/llm/extract", body, map[string]string{"X-Request-Timeout": "5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got extraction.Result
	decodeBody(t, rec, &got)
	if !got.Success || len(got.Courses) != 1 || got.Courses[0].Title != "Algebra" {
		t.Fatalf("unexpected result %+v", got)
	}
	if eng.lastMime != "image/jpeg" {
		t.Errorf("mime = %q", eng.lastMime)
	}
	if eng.deadline <= 0 || eng.deadline > 5*time.Second {
		t.Errorf("deadline = %v, want <= 5s", eng.deadline)
	}

	rec = do(t, srv, http.MethodPost, "/v1/llm/extract", body, nil)
	if rec.Header().Get("X-Cache") != "hit" || eng.calls != 1 {
		t.Errorf("second call should hit the cache: X-Cache=%q calls=%d", rec.Header().Get("X-Cache"), eng.calls)
	}
}

func TestExtract_Errors(t *testing.T) {
	cases := []struct {
		name string
		eng  *fakeEngine
		body any
		want int
	}{
		{"bad json", &fakeEngine{}, "{", http.StatusBadRequest},
		{"bad base64", &fakeEngine{}, types.ExtractInput{ImageB64: "%%%"}, http.StatusBadRequest},
		{"empty image", &fakeEngine{}, types.ExtractInput{ImageB64: ""}, http.StatusBadRequest},
		{"unknown engine", &fakeEngine{}, types.ExtractInput{ImageB64: jpegB64, LLMName: "claude"}, http.StatusBadRequest},
		{"not configured", &fakeEngine{}, types.ExtractInput{ImageB64: jpegB64, LLMName: "deepseek"}, http.StatusServiceUnavailable},
		{"malformed model output", &fakeEngine{err: ocr.ErrMalformedResponse}, types.ExtractInput{ImageB64: jpegB64}, http.StatusBadGateway},
		{"timeout", &fakeEngine{err: context.DeadlineExceeded}, types.ExtractInput{ImageB64: jpegB64}, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newTestServer(tc.eng, Options{}), http.MethodPost, "/v1/llm/extract", tc.body, nil)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
			var e types.ErrorResponse
			decodeBody(t, rec, &e)
			if e.Error == "" {
				t.Error("error body expected")
			}
		})
	}

	rec := do(t, newTestServer(&fakeEngine{}, Options{}), http.MethodGet, "/v1/llm/extract", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestGateway(t *testing.T) {
	eng := &fakeEngine{res: extraction.Result{Success: false, Error: extraction.ErrorNoAcademicContent, Message: "not academic"}, text: "Nice work"}
	srv := newTestServer(eng, Options{})

	rec := do(t, srv, http.MethodPost, "/api/gemini", map[string]any{
		"action": "extractGrades",
		"data":   map[string]any{"imageBase64": jpegB64, "mimeType": "image/png"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("extractGrades status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"error":"no_academic_content"`) || !strings.Contains(rec.Body.String(), `"courses":[]`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if eng.lastMime != "image/png" {
		t.Errorf("declared mime should win, got %q", eng.lastMime)
	}

	rec = do(t, srv, http.MethodPost, "/api/gemini", map[string]any{
		"action": "analyzeGPA",
		"data":   map[string]any{"courses": []course.Course{{ID: "1", Title: "Algebra", Units: 3, Grade: course.GradeOf(3.5)}}},
	}, nil)
	var txt types.TextResult
	decodeBody(t, rec, &txt)
	if rec.Code != http.StatusOK || txt.Result != "Nice work" {
		t.Fatalf("analyzeGPA = %d %+v", rec.Code, txt)
	}
	if !strings.Contains(eng.prompt, "1. Algebra (3 units): Grade 3.5") {
		t.Errorf("prompt = %q", eng.prompt)
	}

	rec = do(t, srv, http.MethodPost, "/api/gemini", map[string]any{"action": "analyzeGPA", "data": map[string]any{"courses": []any{}}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty courses status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/gemini", map[string]any{"action": "generateContent", "data": map[string]any{"prompt": "hello"}}, nil)
	if rec.Code != http.StatusOK || eng.prompt != "hello" {
		t.Errorf("generateContent = %d, prompt %q", rec.Code, eng.prompt)
	}

	rec = do(t, srv, http.MethodPost, "/api/gemini", map[string]any{"action": "dance"}, nil)
	var e types.ErrorResponse
	decodeBody(t, rec, &e)
	if rec.Code != http.StatusBadRequest || e.Error != "Invalid action" {
		t.Errorf("unknown action = %d %+v", rec.Code, e)
	}
}

func TestRateLimit(t *testing.T) {
	eng := &fakeEngine{text: "ok"}
	srv := newTestServer(eng, Options{Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)})
	body := types.GenerateInput{Prompt: "hi"}

	if rec := do(t, srv, http.MethodPost, "/v1/llm/generate", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("first call = %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/v1/llm/generate", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call = %d, want 429", rec.Code)
	}
	// вычисления без LLM не лимитируются
	if rec := do(t, srv, http.MethodPost, "/v1/courses/gpa", types.GPAInput{}, nil); rec.Code != http.StatusOK {
		t.Errorf("gpa = %d", rec.Code)
	}
}

func TestMergeEndpoint(t *testing.T) {
	srv := newTestServer(&fakeEngine{}, Options{})
	rec := do(t, srv, http.MethodPost, "/v1/courses/merge", types.MergeInput{
		Existing: []course.Course{{ID: "1", Title: "CS101 Data Structures", Units: 3}},
		Incoming: []course.CourseData{{Title: "Data Structures", Units: 3, Grade: course.GradeOf(3.3)}},
		Strategy: "update_duplicates",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var res course.Result
	decodeBody(t, rec, &res)
	if len(res.CoursesToAdd) != 1 || *res.CoursesToAdd[0].Course.Grade != 3.3 || res.CoursesToAdd[0].Course.ID != "1" {
		t.Fatalf("unexpected merge %+v", res)
	}
	if res.Message != "1 existing course updated." {
		t.Errorf("message = %q", res.Message)
	}

	rec = do(t, srv, http.MethodPost, "/v1/courses/merge", types.MergeInput{Strategy: "ask_me"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad strategy status = %d", rec.Code)
	}
}

func TestGPAEndpoint(t *testing.T) {
	srv := newTestServer(&fakeEngine{}, Options{})
	rec := do(t, srv, http.MethodPost, "/v1/courses/gpa", types.GPAInput{Courses: []course.Course{
		{Units: 3, Grade: course.GradeOf(4)},
		{Units: 1, Grade: course.GradeOf(2)},
		{Units: 2},
	}}, nil)
	var out types.GPAResult
	decodeBody(t, rec, &out)
	if out.GPA == nil || *out.GPA != 3.5 || out.TotalUnits != 6 || out.Graded != 2 {
		t.Fatalf("unexpected %+v", out)
	}

	rec = do(t, srv, http.MethodPost, "/v1/courses/gpa", types.GPAInput{}, nil)
	if !strings.Contains(rec.Body.String(), `"gpa":null`) {
		t.Errorf("empty list should give null gpa: %s", rec.Body.String())
	}
}

func TestRequestDeadline(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x?timeoutSec=7", nil)
	if d := requestDeadline(r); d != 7*time.Second {
		t.Errorf("query deadline = %v", d)
	}
	r.Header.Set("X-Request-Timeout", "3")
	if d := requestDeadline(r); d != 3*time.Second {
		t.Errorf("header deadline = %v", d)
	}
	r = httptest.NewRequest(http.MethodPost, "/x?timeoutSec=-1", nil)
	if d := requestDeadline(r); d != defaultDeadline {
		t.Errorf("default deadline = %v", d)
	}
}
