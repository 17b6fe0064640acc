package courselist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gwa-helper/api/internal/course"
)

func sample() []course.Course {
	return []course.Course{
		{ID: "a", Title: "CS101 Data Structures", Units: 3},
		{ID: "b", Title: "Physics A", Units: 4, Grade: course.GradeOf(3)},
		{ID: "c", Title: "Physics B", Units: 4},
	}
}

func TestFind(t *testing.T) {
	list := sample()
	cases := []struct {
		ref  string
		want int
		err  error
	}{
		{"2", 1, nil},
		{"data structures", 0, nil},
		{"physics b", 2, nil},
		{"struct", 0, nil},
		{"phys", -1, ErrAmbiguous},
		{"zzz", -1, ErrNotFound},
		{"0", -1, ErrNotFound},
		{"4", -1, ErrNotFound},
		{"  ", -1, ErrNotFound},
	}
	for _, tc := range cases {
		got, err := Find(list, tc.ref)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Errorf("Find(%q) err = %v, want %v", tc.ref, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("Find(%q) = %d, %v; want %d", tc.ref, got, err, tc.want)
		}
	}
}

func TestAddRemove(t *testing.T) {
	list, c, err := Add(nil, course.CourseData{Title: "  Algebra ", Units: 3})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" || c.Title != "Algebra" || len(list) != 1 {
		t.Fatalf("unexpected add %+v %v", c, list)
	}
	if _, _, err := Add(list, course.CourseData{Title: "Bad", Units: -1}); !errors.Is(err, course.ErrBadUnits) {
		t.Errorf("negative units err = %v", err)
	}

	orig := sample()
	rest, removed, err := Remove(orig, "physics a")
	if err != nil || removed.ID != "b" || len(rest) != 2 || rest[1].ID != "c" {
		t.Fatalf("Remove = %v %+v %v", rest, removed, err)
	}
	if orig[1].ID != "b" {
		t.Error("input list must not be modified")
	}
}

func TestParseEntry(t *testing.T) {
	d, err := ParseEntry("Algebra; 3; 3.5")
	if err != nil || d.Title != "Algebra" || d.Units != 3 || d.Grade == nil || *d.Grade != 3.5 {
		t.Fatalf("ParseEntry = %+v, %v", d, err)
	}
	for _, s := range []string{"Algebra; 3", "Algebra; 3; -", "Algebra;3,5;"} {
		d, err := ParseEntry(s)
		if err != nil || d.Grade != nil {
			t.Errorf("ParseEntry(%q) = %+v, %v; want no grade", s, d, err)
		}
	}
	if d, _ := ParseEntry("Algebra;3,5;"); d.Units != 3.5 {
		t.Errorf("decimal comma: units = %v", d.Units)
	}
	if _, err := ParseEntry("Algebra; 3; 5"); !errors.Is(err, course.ErrBadGrade) {
		t.Errorf("grade 5 err = %v", err)
	}
	for _, s := range []string{"Algebra", "Algebra; x", "a;b;c;d"} {
		if _, err := ParseEntry(s); err == nil {
			t.Errorf("ParseEntry(%q) should fail", s)
		}
	}
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "courses.json")
	s := NewStore(path)

	list, err := s.Load()
	if err != nil || len(list) != 0 || list == nil {
		t.Fatalf("Load on missing file = %v, %v", list, err)
	}
	if err := s.Save(sample()); err != nil {
		t.Fatal(err)
	}
	list, err = s.Load()
	if err != nil || len(list) != 3 || *list[1].Grade != 3 {
		t.Fatalf("round trip = %+v, %v", list, err)
	}

	boom := errors.New("boom")
	err = s.Update(func(l []course.Course) ([]course.Course, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Update err = %v", err)
	}
	if list, _ := s.Load(); len(list) != 3 {
		t.Error("failed update must not save")
	}

	err = s.Update(func(l []course.Course) ([]course.Course, error) {
		l, _, err := Remove(l, "1")
		return l, err
	})
	if err != nil {
		t.Fatal(err)
	}
	if list, _ := s.Load(); len(list) != 2 {
		t.Errorf("after remove len = %d", len(list))
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); err == nil {
		t.Error("corrupt file should fail to load")
	}
}
