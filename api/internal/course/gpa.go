package course

// GPA returns the units-weighted average of graded courses. Courses without a
// grade or with non-positive units are left out of both sums; ok is false when
// nothing is left to average.
func GPA(courses []Course) (gpa float64, ok bool) {
	var points, units float64
	for _, c := range courses {
		if c.Units <= 0 || c.Grade == nil {
			continue
		}
		points += *c.Grade * c.Units
		units += c.Units
	}
	if units == 0 {
		return 0, false
	}
	return points / units, true
}

// TotalUnits sums units of every course, graded or not.
func TotalUnits(courses []Course) float64 {
	var total float64
	for _, c := range courses {
		if c.Units > 0 {
			total += c.Units
		}
	}
	return total
}
