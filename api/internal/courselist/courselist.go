// Package courselist holds the client-side course list: lookup by number or
// title and a JSON file store for the CLI.
package courselist

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"gwa-helper/api/internal/course"
)

var (
	ErrNotFound  = errors.New("course not found")
	ErrAmbiguous = errors.New("course reference is ambiguous")
)

// Add validates d and appends it with a fresh ID.
func Add(list []course.Course, d course.CourseData) ([]course.Course, course.Course, error) {
	d.Title = strings.TrimSpace(d.Title)
	if err := course.Validate(d); err != nil {
		return list, course.Course{}, err
	}
	c := d.WithID(course.NewID())
	out := make([]course.Course, 0, len(list)+1)
	out = append(out, list...)
	return append(out, c), c, nil
}

// Find resolves ref to an index in list. ref is a 1-based position, a title
// equal after normalization, or a fuzzy title fragment with a unique best hit.
func Find(list []course.Course, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, ErrNotFound
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(list) {
			return -1, fmt.Errorf("%w: no course #%d", ErrNotFound, n)
		}
		return n - 1, nil
	}

	key := course.Normalize(ref)
	if key == "" {
		key = strings.ToLower(ref)
	}
	keys := make([]string, len(list))
	for i, c := range list {
		keys[i] = course.Normalize(c.Title)
		if keys[i] == "" {
			keys[i] = strings.ToLower(strings.TrimSpace(c.Title))
		}
	}
	for i, k := range keys {
		if k == key {
			return i, nil
		}
	}

	ranks := fuzzy.RankFind(key, keys)
	if len(ranks) == 0 {
		return -1, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	sort.Sort(ranks)
	if len(ranks) > 1 && ranks[1].Distance == ranks[0].Distance {
		return -1, fmt.Errorf("%w: %q matches %q and %q", ErrAmbiguous, ref,
			list[ranks[0].OriginalIndex].Title, list[ranks[1].OriginalIndex].Title)
	}
	return ranks[0].OriginalIndex, nil
}

// Remove deletes the course ref points at and returns it.
func Remove(list []course.Course, ref string) ([]course.Course, course.Course, error) {
	i, err := Find(list, ref)
	if err != nil {
		return list, course.Course{}, err
	}
	removed := list[i]
	out := make([]course.Course, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out, removed, nil
}

// ParseEntry parses "Title; units; grade" where the grade part is optional
// and "-" or "n/a" mean no grade.
func ParseEntry(s string) (course.CourseData, error) {
	parts := strings.Split(s, ";")
	if len(parts) < 2 || len(parts) > 3 {
		return course.CourseData{}, errors.New("expected: Title; units; grade")
	}
	d := course.CourseData{Title: strings.TrimSpace(parts[0])}
	units, err := parseNumber(parts[1])
	if err != nil {
		return course.CourseData{}, fmt.Errorf("units: %w", err)
	}
	d.Units = units
	if len(parts) == 3 {
		g := strings.ToLower(strings.TrimSpace(parts[2]))
		if g != "" && g != "-" && g != "n/a" {
			v, err := parseNumber(g)
			if err != nil {
				return course.CourseData{}, fmt.Errorf("grade: %w", err)
			}
			d.Grade = &v
		}
	}
	if err := course.Validate(d); err != nil {
		return course.CourseData{}, err
	}
	return d, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}
