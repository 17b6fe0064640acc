package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

// palette: именованные стили вывода.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	head  lipgloss.Style
	cell  lipgloss.Style
}

func newPalette() palette {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return palette{
		title: fg("#7D56F4").Bold(true),
		ok:    fg("#04B575").Bold(true),
		err:   fg("#FF0000").Bold(true),
		warn:  fg("#FFA500"),
		help:  fg("#626262").Italic(true),
		head:  fg("#7D56F4").Bold(true).Padding(0, 1),
		cell:  lipgloss.NewStyle().Padding(0, 1),
	}
}

var styles = newPalette()

func (p palette) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.help).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.head
			}
			return p.cell
		}).
		Render()
}

func renderCourses(w io.Writer, courses []course.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(w, styles.help.Render("No courses yet. Use `gwa add` or `gwa extract <image>`."))
		return
	}
	rows := make([][]string, 0, len(courses))
	for i, c := range courses {
		rows = append(rows, []string{strconv.Itoa(i + 1), course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade)})
	}
	fmt.Fprintln(w, styles.table([]string{"#", "Course", "Units", "Grade"}, rows))
	renderGPA(w, courses)
}

func renderGPA(w io.Writer, courses []course.Course) {
	gpa, ok := course.GPA(courses)
	if !ok {
		fmt.Fprintln(w, styles.warn.Render("GWA: N/A (no graded courses with units)"))
		return
	}
	fmt.Fprintf(w, "%s %s %s\n",
		styles.title.Render("GWA:"),
		styles.ok.Render(fmt.Sprintf("%.2f", gpa)),
		styles.help.Render(fmt.Sprintf("(%s units total)", course.FormatNumber(course.TotalUnits(courses)))))
}

func renderExtracted(w io.Writer, data []course.CourseData) {
	rows := make([][]string, 0, len(data))
	for i, c := range data {
		rows = append(rows, []string{strconv.Itoa(i + 1), course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade)})
	}
	fmt.Fprintln(w, styles.table([]string{"#", "Extracted course", "Units", "Grade"}, rows))
}

func renderDuplicates(w io.Writer, p course.Preview) {
	rows := make([][]string, 0, len(p.Duplicates))
	for _, d := range p.Duplicates {
		rows = append(rows, []string{
			course.DisplayTitle(d.Incoming.Title),
			course.DisplayTitle(d.Existing.Title),
			course.Normalize(d.Incoming.Title),
		})
	}
	fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf("%d possible duplicate(s), %d new course(s):", len(p.Duplicates), p.NewCount)))
	fmt.Fprintln(w, styles.table([]string{"Extracted", "Existing", "Key"}, rows))
}

func renderOutcome(w io.Writer, o extraction.Outcome) {
	switch o.State {
	case extraction.StateSuccess:
		fmt.Fprintln(w, styles.ok.Render(o.Message))
	case extraction.StateError:
		fmt.Fprintln(w, styles.err.Render(o.Message))
	default:
		fmt.Fprintln(w, styles.warn.Render(o.Message))
	}
}
