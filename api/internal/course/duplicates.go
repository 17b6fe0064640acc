package course

// DuplicateMatch pairs an incoming course with the existing course it duplicates.
type DuplicateMatch struct {
	Existing Course     `json:"existing_course"`
	Incoming CourseData `json:"new_course"`
	// index of Incoming in the slice passed to FindDuplicates
	IncomingIndex int `json:"-"`
}

// FindDuplicates returns, for every incoming course, the first existing course
// (in list order) whose normalized title is equal and non-empty.
// An existing course may be matched by several incoming ones.
func FindDuplicates(existing []Course, incoming []CourseData) []DuplicateMatch {
	if len(existing) == 0 || len(incoming) == 0 {
		return nil
	}
	keys := make([]string, len(existing))
	for i, c := range existing {
		keys[i] = Normalize(c.Title)
	}

	var out []DuplicateMatch
	for i, in := range incoming {
		key := Normalize(in.Title)
		if key == "" {
			continue
		}
		for j, k := range keys {
			if k == key {
				out = append(out, DuplicateMatch{Existing: existing[j], Incoming: in, IncomingIndex: i})
				break
			}
		}
	}
	return out
}
