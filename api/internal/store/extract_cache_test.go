package store

import (
	"errors"
	"testing"
	"time"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

func okResult() extraction.Result {
	return extraction.Result{Success: true, Courses: []course.CourseData{{Title: "Algebra", Units: 3, Grade: course.GradeOf(3.5)}}}
}

func TestExtractCache_UpsertFind(t *testing.T) {
	c := NewExtractCache(time.Minute, 0)
	if !c.Upsert("h", "gemini", "m", okResult()) {
		t.Fatal("certain success should be cached")
	}
	row, err := c.FindByHash("h", "gemini", "m")
	if err != nil {
		t.Fatal(err)
	}
	*row.Result.Courses[0].Grade = 1
	row.Result.Courses[0].Title = "changed"

	again, _ := c.FindByHash("h", "gemini", "m")
	if *again.Result.Courses[0].Grade != 3.5 || again.Result.Courses[0].Title != "Algebra" {
		t.Error("cached rows must not be shared with callers")
	}
	if _, err := c.FindByHash("h", "gpt", "m"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other engine should miss, got %v", err)
	}
}

func TestExtractCache_SkipsUncacheable(t *testing.T) {
	c := NewExtractCache(0, 0)
	uncertain := okResult()
	uncertain.Uncertain = true
	for _, r := range []extraction.Result{
		uncertain,
		{Success: true},
		{Success: false, Error: extraction.ErrorNoAcademicContent},
	} {
		if c.Upsert("h", "gemini", "m", r) {
			t.Errorf("result %+v must not be cached", r)
		}
	}
	if c.Len() != 0 {
		t.Errorf("len = %d", c.Len())
	}
}

func TestExtractCache_Expiry(t *testing.T) {
	c := NewExtractCache(time.Minute, 0)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Upsert("h", "gemini", "m", okResult())

	now = now.Add(59 * time.Second)
	if _, err := c.FindByHash("h", "gemini", "m"); err != nil {
		t.Fatalf("fresh row: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := c.FindByHash("h", "gemini", "m"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired row should miss, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("expired row should be dropped")
	}
}

func TestExtractCache_EvictsOldest(t *testing.T) {
	c := NewExtractCache(0, 2)
	now := time.Unix(0, 0)
	c.now = func() time.Time { now = now.Add(time.Second); return now }
	c.Upsert("a", "gemini", "m", okResult())
	c.Upsert("b", "gemini", "m", okResult())
	c.Upsert("c", "gemini", "m", okResult())

	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	if _, err := c.FindByHash("a", "gemini", "m"); !errors.Is(err, ErrNotFound) {
		t.Error("oldest row should be evicted")
	}
}

func TestExtractCache_Prune(t *testing.T) {
	c := NewExtractCache(time.Minute, 0)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Upsert("old", "gemini", "m", okResult())
	now = now.Add(50 * time.Second)
	c.Upsert("new", "gemini", "m", okResult())
	now = now.Add(20 * time.Second)

	if n := c.Prune(); n != 1 || c.Len() != 1 {
		t.Fatalf("Prune = %d, Len = %d", n, c.Len())
	}
	if _, err := c.FindByHash("new", "gemini", "m"); err != nil {
		t.Errorf("fresh row pruned: %v", err)
	}
	if n := NewExtractCache(0, 0).Prune(); n != 0 {
		t.Errorf("no expiry prune = %d", n)
	}
}
