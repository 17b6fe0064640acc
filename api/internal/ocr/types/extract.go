package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

// ExtractRequest: вход движка: уже декодированное изображение.
type ExtractRequest struct {
	Image         []byte
	Mime          string
	ModelOverride string
}

// ExtractInput: тело POST /v1/llm/extract.
type ExtractInput struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"` // base64 или data:URI
	Mime     string `json:"mime,omitempty"`
}

// Number принимает число, null или мусор от модели. Valid=false, если числа нет.
// Числа за пределами float64 приходят как ±Inf с Valid=true.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"', '{', '[', 'n', 't', 'f':
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Text принимает строку или null; число переносится как есть, прочее даёт "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch {
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*t = Text(b)
	}
	return nil
}

type ExtractedCourse struct {
	Title Text   `json:"title"`
	Units Number `json:"units"`
	Grade Number `json:"grade"`
}

// ExtractResponse: JSON, который возвращает модель (контракт с no_academic_content и uncertain).
type ExtractResponse struct {
	Success   bool                 `json:"success"`
	Error     extraction.ErrorKind `json:"error"`
	Message   Text                 `json:"message"`
	Courses   []ExtractedCourse    `json:"courses"`
	Uncertain bool                 `json:"uncertain"`
}

// ToResult applies numeric coercion: missing or non-finite units become 0,
// missing or non-finite grades become absent.
func (r ExtractResponse) ToResult() extraction.Result {
	out := extraction.Result{
		Success:   r.Success,
		Error:     r.Error,
		Message:   string(r.Message),
		Courses:   make([]course.CourseData, 0, len(r.Courses)),
		Uncertain: r.Uncertain,
	}
	for _, c := range r.Courses {
		d := course.CourseData{Title: string(c.Title)}
		if c.Units.Valid {
			d.Units = extraction.CoerceUnits(c.Units.Value)
		}
		if c.Grade.Valid {
			d.Grade = extraction.CoerceGrade(&c.Grade.Value)
		}
		out.Courses = append(out.Courses, d)
	}
	return out
}
