package extraction

import (
	"errors"
	"sync"
	"sync/atomic"

	"gwa-helper/api/internal/course"
)

var ErrInFlight = errors.New("extraction: a submission is already in flight")

// Session tracks one user's submissions: idle, then extracting, then a
// terminal state until the next Begin or Reset. Safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	state   State
	outcome Outcome
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Begin starts a submission. It fails with ErrInFlight while the previous one
// has not finished.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExtracting {
		return ErrInFlight
	}
	s.state = StateExtracting
	s.outcome = Outcome{State: StateExtracting}
	return nil
}

// Finish interprets the call result and stores it. ok is false when the
// session was reset while the call was running; the outcome is then dropped.
func (s *Session) Finish(res Result, callErr error) (o Outcome, ok bool) {
	o = Interpret(res, callErr)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateExtracting {
		return o, false
	}
	s.state = o.State
	s.outcome = o
	return o, true
}

// Reset drops any outcome and returns to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = StateIdle
	s.outcome = Outcome{}
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return StateIdle
	}
	return s.state
}

// Outcome returns the last stored outcome (zero value when idle).
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// TakeCourses hands the successful courses to the caller once and returns the
// session to idle. ok is false unless the session is in StateSuccess.
func (s *Session) TakeCourses() (courses []course.CourseData, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSuccess {
		return nil, false
	}
	courses = s.outcome.Courses
	s.state = StateIdle
	s.outcome = Outcome{}
	return courses, true
}

// Flight is a per-call-type in-flight flag.
type Flight struct {
	busy atomic.Bool
}

// TryStart sets the flag and reports whether it was clear.
func (f *Flight) TryStart() bool { return f.busy.CompareAndSwap(false, true) }

func (f *Flight) Done() { f.busy.Store(false) }

func (f *Flight) Busy() bool { return f.busy.Load() }
