package extraction

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"gwa-helper/api/internal/course"
)

func decode(t *testing.T, raw string) Result {
	t.Helper()
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return r
}

func TestInterpret_NoAcademicContent(t *testing.T) {
	r := decode(t, `{"success":false,"error":"no_academic_content","courses":[],"uncertain":false}`)
	o := Interpret(r, nil)
	if o.State != StateNoContent {
		t.Fatalf("state = %s, want no_content", o.State)
	}
	if len(o.Courses) != 0 {
		t.Errorf("no courses must be carried, got %d", len(o.Courses))
	}
	if !o.Offers(ActionUploadDifferent) {
		t.Errorf("expected upload_different among %v", o.Actions)
	}
}

func TestInterpret_UncertainDespiteSuccess(t *testing.T) {
	r := decode(t, `{"success":true,"error":null,"courses":[{"title":"Algebra","units":3,"grade":3.5}],"uncertain":true}`)
	o := Interpret(r, nil)
	if o.State != StateUncertain {
		t.Fatalf("state = %s, want uncertain", o.State)
	}
	if len(o.Courses) != 0 {
		t.Errorf("uncertain outcome must not carry courses, got %+v", o.Courses)
	}
	if !o.Offers(ActionRetry) {
		t.Errorf("expected retry among %v", o.Actions)
	}
}

func TestInterpret_Success(t *testing.T) {
	r := decode(t, `{"success":true,"courses":[{"title":"Algebra","units":3,"grade":3.5}],"uncertain":false}`)
	o := Interpret(r, nil)
	if o.State != StateSuccess {
		t.Fatalf("state = %s, want success", o.State)
	}
	if len(o.Courses) != 1 || o.Courses[0].Title != "Algebra" || *o.Courses[0].Grade != 3.5 {
		t.Fatalf("unexpected courses %+v", o.Courses)
	}

	res := course.Merge(nil, o.Courses, course.MergeOptions{})
	if len(res.CoursesToAdd) != 1 {
		t.Errorf("course should reach the merge resolver, got %+v", res)
	}
}

func TestInterpret_Table(t *testing.T) {
	cases := []struct {
		name string
		res  Result
		err  error
		want State
		msg  string
	}{
		{"call failure", Result{Success: true}, errors.New("gemini: 503"), StateError, "gemini: 503"},
		{"uncertain_data error", Result{Error: ErrorUncertainData, Message: "columns unclear"}, nil, StateUncertain, "columns unclear"},
		{"other failure verbatim", Result{Error: ErrorOther, Message: "quota"}, nil, StateError, "quota"},
		{"failure without message", Result{}, nil, StateError, msgError},
		{"empty success", Result{Success: true}, nil, StateEmptySuccess, msgEmptySuccess},
		{"no content default message", Result{Error: ErrorNoAcademicContent}, nil, StateNoContent, msgNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := Interpret(tc.res, tc.err)
			if o.State != tc.want {
				t.Fatalf("state = %s, want %s", o.State, tc.want)
			}
			if o.Message != tc.msg {
				t.Errorf("message = %q, want %q", o.Message, tc.msg)
			}
			if !o.State.Terminal() {
				t.Errorf("%s should be terminal", o.State)
			}
			if o.State != StateSuccess && len(o.Actions) == 0 {
				t.Error("non-success outcome must offer a next action")
			}
		})
	}
}

func TestCoercion(t *testing.T) {
	if CoerceUnits(math.NaN()) != 0 || CoerceUnits(math.Inf(-1)) != 0 || CoerceUnits(3) != 3 {
		t.Error("units coercion")
	}
	nan := math.NaN()
	if CoerceGrade(&nan) != nil {
		t.Error("NaN grade must become absent")
	}
	zero := 0.0
	if g := CoerceGrade(&zero); g == nil || *g != 0 {
		t.Error("zero grade must stay zero")
	}

	r := Result{Success: true, Courses: []course.CourseData{
		{Title: "A", Units: math.Inf(1), Grade: course.GradeOf(math.Inf(1))},
	}}
	o := Interpret(r, nil)
	if o.State != StateSuccess || o.Courses[0].Units != 0 || o.Courses[0].Grade != nil {
		t.Fatalf("unexpected coerced outcome %+v", o)
	}
}

func TestErrorKindJSON(t *testing.T) {
	b, err := json.Marshal(Result{Success: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"success":true,"error":null,"message":"","courses":null,"uncertain":false}` {
		t.Errorf("unexpected JSON %s", got)
	}
	if r := decode(t, `{"success":false,"error":{"code":1}}`); r.Error != ErrorOther {
		t.Errorf("non-string error should decode as other, got %q", r.Error)
	}
	if r := decode(t, `{"success":false,"error":" No_Academic_Content "}`); r.Error != ErrorNoAcademicContent {
		t.Errorf("error kind should be normalised, got %q", r.Error)
	}
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()
	if s.State() != StateIdle {
		t.Fatalf("new session state = %s", s.State())
	}
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := s.Begin(); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second Begin should fail with ErrInFlight, got %v", err)
	}

	ok := Result{Success: true, Courses: []course.CourseData{{Title: "Algebra", Units: 3}}}
	if o, stored := s.Finish(ok, nil); !stored || o.State != StateSuccess {
		t.Fatalf("Finish = %+v, %v", o, stored)
	}
	courses, took := s.TakeCourses()
	if !took || len(courses) != 1 {
		t.Fatalf("TakeCourses = %v, %v", courses, took)
	}
	if _, again := s.TakeCourses(); again {
		t.Error("courses must be handed out once")
	}

	// a terminal state allows a new submission
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if _, stored := s.Finish(ok, nil); stored {
		t.Error("outcome arriving after Reset must be dropped")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSession_ConcurrentBegin(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin() == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if started != 1 {
		t.Fatalf("exactly one Begin should win, got %d", started)
	}
}

func TestFlight(t *testing.T) {
	var f Flight
	if !f.TryStart() {
		t.Fatal("first TryStart should succeed")
	}
	if f.TryStart() || !f.Busy() {
		t.Fatal("flight should be busy")
	}
	f.Done()
	if f.Busy() || !f.TryStart() {
		t.Fatal("flight should be free after Done")
	}
}
