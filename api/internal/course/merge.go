package course

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Strategy string

const (
	SkipDuplicates   Strategy = "skip_duplicates"
	UpdateDuplicates Strategy = "update_duplicates"
	AddAnyway        Strategy = "add_anyway"
)

// ParseStrategy accepts the wire names and the short forms skip|update|add.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip", "skip_duplicates":
		return SkipDuplicates, nil
	case "update", "update_duplicates":
		return UpdateDuplicates, nil
	case "add", "add_anyway":
		return AddAnyway, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q; use skip_duplicates|update_duplicates|add_anyway", s)
	}
}

type Action string

const (
	ActionSkip      Action = "skip"
	ActionUpdate    Action = "update"
	ActionAddAnyway Action = "add_anyway"
)

// PendingKind tells the caller how to apply a pending entry.
type PendingKind string

const (
	PendingNew       PendingKind = "new"       // not a duplicate, gets a fresh ID
	PendingUpdate    PendingKind = "update"    // replaces units/grade of the course with the same ID
	PendingDuplicate PendingKind = "duplicate" // duplicate added anyway, gets a fresh ID
)

type Pending struct {
	Kind   PendingKind `json:"kind"`
	Course Course      `json:"course"` // ID is set only for PendingUpdate
}

type Resolution struct {
	Existing Course     `json:"existing_course"`
	Incoming CourseData `json:"new_course"`
	Action   Action     `json:"action"`
}

type Result struct {
	CoursesToAdd []Pending    `json:"courses_to_add"`
	Duplicates   []Resolution `json:"duplicates_found"`
	Message      string       `json:"message"`
}

type MergeOptions struct {
	Strategy         Strategy
	AllowEmptyTitles bool
}

// Merge reconciles incoming (extracted) courses against the existing list.
// Neither input is modified.
func Merge(existing []Course, incoming []CourseData, opts MergeOptions) Result {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = SkipDuplicates
	}

	valid := filterTitled(incoming, opts.AllowEmptyTitles)
	dups := FindDuplicates(existing, valid)
	duplicated := make(map[int]struct{}, len(dups))
	for _, d := range dups {
		duplicated[d.IncomingIndex] = struct{}{}
	}

	res := Result{CoursesToAdd: make([]Pending, 0, len(valid))}
	newCount := 0
	for i, c := range valid {
		if _, ok := duplicated[i]; ok {
			continue
		}
		res.CoursesToAdd = append(res.CoursesToAdd, Pending{Kind: PendingNew, Course: c.WithID("")})
		newCount++
	}

	if len(dups) == 0 {
		res.Message = fmt.Sprintf("Adding %d new %s.", newCount, plural(newCount, "course", "courses"))
		return res
	}

	var skipped, updated, addedAnyway int
	res.Duplicates = make([]Resolution, 0, len(dups))
	for _, d := range dups {
		var action Action
		switch strategy {
		case UpdateDuplicates:
			action = ActionUpdate
			updated++
			if ShouldUpdate(d.Existing, d.Incoming) {
				res.CoursesToAdd = append(res.CoursesToAdd, Pending{Kind: PendingUpdate, Course: updatedCourse(d.Existing, d.Incoming)})
			}
		case AddAnyway:
			action = ActionAddAnyway
			addedAnyway++
			res.CoursesToAdd = append(res.CoursesToAdd, Pending{Kind: PendingDuplicate, Course: d.Incoming.WithID("")})
		default:
			action = ActionSkip
			skipped++
		}
		res.Duplicates = append(res.Duplicates, Resolution{Existing: d.Existing, Incoming: d.Incoming, Action: action})
	}

	var parts []string
	if newCount > 0 {
		parts = append(parts, fmt.Sprintf("%d new %s added", newCount, plural(newCount, "course", "courses")))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d %s skipped", skipped, plural(skipped, "duplicate", "duplicates")))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d existing %s updated", updated, plural(updated, "course", "courses")))
	}
	if addedAnyway > 0 {
		parts = append(parts, fmt.Sprintf("%d %s added anyway", addedAnyway, plural(addedAnyway, "duplicate", "duplicates")))
	}
	res.Message = strings.Join(parts, ", ") + "."
	return res
}

// ShouldUpdate reports whether incoming carries better data than existing.
// It never downgrades a populated field to an empty one.
func ShouldUpdate(existing Course, incoming CourseData) bool {
	if incoming.Grade != nil && existing.Grade == nil {
		return true
	}
	if t := strings.TrimSpace(incoming.Title); t != "" && utf8.RuneCountInString(t) > utf8.RuneCountInString(existing.Title) {
		return true
	}
	if incoming.Units > 0 && existing.Units <= 0 {
		return true
	}
	return false
}

// updatedCourse keeps ID and title of existing.
func updatedCourse(existing Course, incoming CourseData) Course {
	out := existing
	if incoming.Units > 0 {
		out.Units = incoming.Units
	}
	if incoming.Grade != nil {
		g := *incoming.Grade
		out.Grade = &g
	}
	return out
}

// Apply returns the course list after the merge: updates are applied in place,
// new entries are appended with IDs from newID. existing is not modified.
func (r Result) Apply(existing []Course, newID func() string) []Course {
	if newID == nil {
		newID = NewID
	}
	out := make([]Course, len(existing), len(existing)+len(r.CoursesToAdd))
	copy(out, existing)

	pos := make(map[string]int, len(out))
	for i, c := range out {
		pos[c.ID] = i
	}
	for _, p := range r.CoursesToAdd {
		if p.Kind == PendingUpdate {
			if i, ok := pos[p.Course.ID]; ok {
				out[i].Units = p.Course.Units
				out[i].Grade = p.Course.Grade
				continue
			}
		}
		c := p.Course
		c.ID = newID()
		out = append(out, c)
	}
	return out
}

// Counts summarises a Result for display.
func (r Result) Counts() (added, updated int) {
	for _, p := range r.CoursesToAdd {
		if p.Kind == PendingUpdate {
			updated++
		} else {
			added++
		}
	}
	return added, updated
}

// Preview describes what a merge would find before a strategy is picked.
type Preview struct {
	Duplicates []DuplicateMatch
	NewCount   int
}

// PreviewMerge runs the title filter and the matcher without resolving anything.
func PreviewMerge(existing []Course, incoming []CourseData, allowEmptyTitles bool) Preview {
	valid := filterTitled(incoming, allowEmptyTitles)
	dups := FindDuplicates(existing, valid)
	return Preview{Duplicates: dups, NewCount: len(valid) - len(dups)}
}

func filterTitled(incoming []CourseData, allowEmpty bool) []CourseData {
	if allowEmpty {
		return incoming
	}
	out := make([]CourseData, 0, len(incoming))
	for _, c := range incoming {
		if strings.TrimSpace(c.Title) != "" {
			out = append(out, c)
		}
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
