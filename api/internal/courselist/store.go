package courselist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/util"
)

// Store keeps a course list in a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns an empty list when the file does not exist yet.
func (s *Store) Load() ([]course.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []course.Course{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read courses: %w", err)
	}
	var list []course.Course
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if list == nil {
		list = []course.Course{}
	}
	return list, nil
}

// Save writes the list atomically.
func (s *Store) Save(list []course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list == nil {
		list = []course.Course{}
	}
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(s.path, append(b, '\n'), 0o644)
}

// Update loads, applies fn and saves when fn succeeds.
func (s *Store) Update(fn func([]course.Course) ([]course.Course, error)) error {
	list, err := s.Load()
	if err != nil {
		return err
	}
	next, err := fn(list)
	if err != nil {
		return err
	}
	return s.Save(next)
}
