package extraction

import (
	"strings"

	"gwa-helper/api/internal/course"
)

type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateNoContent    State = "no_content"
	StateUncertain    State = "uncertain"
	StateEmptySuccess State = "empty_success"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// Terminal reports whether s ends a submission.
func (s State) Terminal() bool {
	switch s {
	case StateNoContent, StateUncertain, StateEmptySuccess, StateSuccess, StateError:
		return true
	}
	return false
}

// Action is a next step offered to the user after an outcome.
type Action string

const (
	ActionRetry           Action = "retry"
	ActionUploadDifferent Action = "upload_different"
	ActionConfirm         Action = "confirm"
	ActionClose           Action = "close"
)

const (
	msgNoContent    = "This image does not appear to contain academic records or course information."
	msgUncertain    = "Could not clearly distinguish between units and grades columns. No courses were added."
	msgEmptySuccess = "No courses were found in this image."
	msgError        = "Failed to extract courses from image"
)

// Outcome is the interpreted, user-facing result of one submission.
type Outcome struct {
	State   State               `json:"state"`
	Message string              `json:"message"`
	Courses []course.CourseData `json:"courses,omitempty"`
	Actions []Action            `json:"actions"`
}

// Interpret classifies a raw extraction. callErr is the failure of the call
// itself (transport or framing); res is ignored when it is set.
//
// Uncertainty wins over success: a result flagged uncertain never carries
// courses forward, even when the model reported success.
func Interpret(res Result, callErr error) Outcome {
	if callErr != nil {
		return Outcome{
			State:   StateError,
			Message: callErr.Error(),
			Actions: []Action{ActionRetry, ActionClose},
		}
	}

	switch {
	case !res.Success && res.Error == ErrorNoAcademicContent:
		return Outcome{
			State:   StateNoContent,
			Message: orDefault(res.Message, msgNoContent),
			Actions: []Action{ActionUploadDifferent, ActionClose},
		}
	case res.Error == ErrorUncertainData || res.Uncertain:
		msg := msgUncertain
		if !res.Success && strings.TrimSpace(res.Message) != "" {
			msg = res.Message
		}
		return Outcome{
			State:   StateUncertain,
			Message: msg,
			Actions: []Action{ActionRetry, ActionUploadDifferent, ActionClose},
		}
	case !res.Success:
		return Outcome{
			State:   StateError,
			Message: orDefault(res.Message, msgError),
			Actions: []Action{ActionRetry, ActionClose},
		}
	}

	courses := res.Coerce().Courses
	if len(courses) == 0 {
		return Outcome{
			State:   StateEmptySuccess,
			Message: msgEmptySuccess,
			Actions: []Action{ActionUploadDifferent, ActionClose},
		}
	}
	return Outcome{
		State:   StateSuccess,
		Message: orDefault(res.Message, "Successfully extracted course information."),
		Courses: courses,
		Actions: []Action{ActionConfirm, ActionClose},
	}
}

// Offers reports whether a is among the outcome's next actions.
func (o Outcome) Offers(a Action) bool {
	for _, x := range o.Actions {
		if x == a {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
