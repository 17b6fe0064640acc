package course

import (
	"errors"
	"math"
	"testing"
)

func TestGPA(t *testing.T) {
	courses := []Course{
		{Title: "Algebra", Units: 3, Grade: GradeOf(4)},
		{Title: "Biology", Units: 1, Grade: GradeOf(2)},
		{Title: "No grade", Units: 5},
		{Title: "Zero units", Units: 0, Grade: GradeOf(1)},
	}
	got, ok := GPA(courses)
	if !ok {
		t.Fatal("expected a GPA")
	}
	if math.Abs(got-3.5) > 1e-9 {
		t.Errorf("GPA = %v, want 3.5", got)
	}
	if TotalUnits(courses) != 9 {
		t.Errorf("TotalUnits = %v, want 9", TotalUnits(courses))
	}
}

func TestGPA_ZeroGradeCounts(t *testing.T) {
	got, ok := GPA([]Course{{Units: 3, Grade: GradeOf(0)}, {Units: 3, Grade: GradeOf(4)}})
	if !ok || got != 2 {
		t.Fatalf("GPA = %v, %v; want 2, true", got, ok)
	}
}

func TestGPA_Undefined(t *testing.T) {
	if _, ok := GPA(nil); ok {
		t.Error("empty list must have no GPA")
	}
	if _, ok := GPA([]Course{{Units: 3}}); ok {
		t.Error("ungraded list must have no GPA")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(CourseData{Title: "x", Units: 3, Grade: GradeOf(3.5)}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := Validate(CourseData{Units: -1}); !errors.Is(err, ErrBadUnits) {
		t.Errorf("expected ErrBadUnits, got %v", err)
	}
	if err := Validate(CourseData{Units: math.Inf(1)}); !errors.Is(err, ErrBadUnits) {
		t.Errorf("expected ErrBadUnits, got %v", err)
	}
	if err := Validate(CourseData{Units: 3, Grade: GradeOf(4.5)}); !errors.Is(err, ErrBadGrade) {
		t.Errorf("expected ErrBadGrade, got %v", err)
	}
}

func TestFormatGrade(t *testing.T) {
	if FormatGrade(nil) != "N/A" {
		t.Error("absent grade should print N/A")
	}
	if got := FormatGrade(GradeOf(0)); got != "0" {
		t.Errorf("FormatGrade(0) = %q", got)
	}
	if got := FormatGrade(GradeOf(3.5)); got != "3.5" {
		t.Errorf("FormatGrade(3.5) = %q", got)
	}
	if got := FormatNumber(10); got != "10" {
		t.Errorf("FormatNumber(10) = %q", got)
	}
}
