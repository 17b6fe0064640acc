package course

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	MinGrade = 0.0
	MaxGrade = 4.0
)

// Course: запись, уже добавленная в калькулятор.
type Course struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Units float64  `json:"units"`
	Grade *float64 `json:"grade"` // nil: оценки нет
}

// CourseData: строка, извлечённая с изображения; ID появляется только после слияния.
type CourseData struct {
	Title string   `json:"title"`
	Units float64  `json:"units"`
	Grade *float64 `json:"grade"`
}

func (c Course) Data() CourseData {
	return CourseData{Title: c.Title, Units: c.Units, Grade: c.Grade}
}

func (d CourseData) WithID(id string) Course {
	return Course{ID: id, Title: d.Title, Units: d.Units, Grade: d.Grade}
}

func (c Course) HasGrade() bool     { return c.Grade != nil }
func (d CourseData) HasGrade() bool { return d.Grade != nil }

// GradeOf returns a pointer to a copy of v, handy for literals.
func GradeOf(v float64) *float64 { return &v }

// NewID генерирует идентификатор для новой записи.
func NewID() string { return uuid.NewString() }

var (
	ErrBadUnits = errors.New("units must be a finite number >= 0")
	ErrBadGrade = errors.New("grade must be a finite number between 0 and 4")
)

// Validate checks a manually entered course.
func Validate(d CourseData) error {
	if math.IsNaN(d.Units) || math.IsInf(d.Units, 0) || d.Units < 0 {
		return fmt.Errorf("%w: got %v", ErrBadUnits, d.Units)
	}
	if d.Grade != nil {
		g := *d.Grade
		if math.IsNaN(g) || math.IsInf(g, 0) || g < MinGrade || g > MaxGrade {
			return fmt.Errorf("%w: got %v", ErrBadGrade, g)
		}
	}
	return nil
}

// DisplayTitle возвращает название или заглушку для пустого.
func DisplayTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Untitled Course"
}

// FormatGrade prints a grade, or "N/A" when absent.
func FormatGrade(g *float64) string {
	if g == nil {
		return "N/A"
	}
	return FormatNumber(*g)
}

func FormatNumber(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
