package extraction

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"gwa-helper/api/internal/course"
)

// ErrorKind: классификация неуспешного извлечения, которую возвращает модель.
type ErrorKind string

const (
	ErrorNone              ErrorKind = ""
	ErrorNoAcademicContent ErrorKind = "no_academic_content"
	ErrorUncertainData     ErrorKind = "uncertain_data"
	ErrorOther             ErrorKind = "other"
)

// MarshalJSON writes null for ErrorNone.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	if k == ErrorNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(k))
}

func (k *ErrorKind) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*k = ErrorNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// модель иногда кладёт сюда объект или число, считаем это прочей ошибкой
		*k = ErrorOther
		return nil
	}
	*k = ErrorKind(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Result: структурированный ответ извлечения (последняя версия контракта).
type Result struct {
	Success   bool                `json:"success"`
	Error     ErrorKind           `json:"error"`
	Message   string              `json:"message"`
	Courses   []course.CourseData `json:"courses"`
	Uncertain bool                `json:"uncertain"`
}

// CoerceUnits maps a non-finite value to 0.
func CoerceUnits(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CoerceGrade maps a non-finite value to an absent grade. Zero stays zero.
func CoerceGrade(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	g := *v
	return &g
}

// CoerceCourse applies numeric coercion to one extracted row.
func CoerceCourse(c course.CourseData) course.CourseData {
	return course.CourseData{
		Title: c.Title,
		Units: CoerceUnits(c.Units),
		Grade: CoerceGrade(c.Grade),
	}
}

// Coerce returns a copy of r with every course coerced and a non-nil course slice.
func (r Result) Coerce() Result {
	out := r
	out.Courses = make([]course.CourseData, 0, len(r.Courses))
	for _, c := range r.Courses {
		out.Courses = append(out.Courses, CoerceCourse(c))
	}
	return out
}
