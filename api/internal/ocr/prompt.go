package ocr

import (
	"errors"
	"fmt"
	"strings"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/util"
)

const EXTRACT = "extract"

// ExtractSystemPrompt: инструкция извлечения по умолчанию.
const ExtractSystemPrompt = `Analyze this image to extract course information from academic records, transcripts, or grade reports.

FIRST: Determine if this image contains academic/educational content:
- Look for course names, grades, units/credits, transcripts, grade reports
- Academic tables with course information
- Educational institution documents

IF NO ACADEMIC CONTENT FOUND, return exactly:
{
  "success": false,
  "error": "no_academic_content",
  "message": "This image does not appear to contain academic records or course information.",
  "courses": [],
  "uncertain": false
}

IF ACADEMIC CONTENT FOUND, extract course information with these rules:

1. DECIMAL DETECTION RULE:
   - A column with decimal values (3.5, 2.7, 4.0, 1.3) is the GRADES column.
   - The other numerical column (whole numbers) is the UNITS column.

2. COLUMN PAIRING:
   - Search the whole image for a column containing decimal values first.
   - If none exists, identify columns by typical ranges: units are 1-6 (whole numbers only),
     grades are 0.0-4.0 (may have decimals).

3. UNCERTAINTY (set "uncertain": true when any holds):
   - decimal values appear in what looks like a units column;
   - all numerical columns contain only whole numbers and cannot be told apart;
   - there are no clear numerical columns for both units and grades;
   - the layout is too unclear to identify columns.

4. DATA VALIDATION:
   - Units MUST be whole numbers, never decimals.
   - Grades may be decimals or whole numbers.
   - Convert letter grades (A, B, C, ...) to the 4.0 scale.
   - Use null for any unclear value.

FOR SUCCESSFUL EXTRACTION return:
{
  "success": true,
  "error": null,
  "message": "Successfully extracted course information.",
  "courses": [
    {"title": "Course name or null", "units": whole_number_only, "grade": numeric_grade_0_to_4}
  ],
  "uncertain": boolean
}

FOR UNCERTAIN EXTRACTION return:
{
  "success": false,
  "error": "uncertain_data",
  "message": "Could not clearly distinguish between units and grades columns.",
  "courses": [],
  "uncertain": true
}

Return ONLY valid JSON, nothing else.`

// ExtractUserPrompt сопровождает изображение.
const ExtractUserPrompt = "Extract the courses from this image. Answer with the JSON object only."

// LoadExtractPrompt берёт переопределение из promptDir, иначе встроенный текст.
func LoadExtractPrompt(promptDir, provider string) (string, error) {
	p, err := util.LoadPrompt(promptDir, provider, EXTRACT, "system")
	if errors.Is(err, util.ErrPromptNotFound) {
		return ExtractSystemPrompt, nil
	}
	return p, err
}

// AnalysisPrompt строит запрос анализа успеваемости по списку курсов.
func AnalysisPrompt(courses []course.Course) string {
	var b strings.Builder
	b.WriteString("I have the following courses and grades:\n")
	for i, c := range courses {
		fmt.Fprintf(&b, "%d. %s (%s units): Grade %s\n",
			i+1, course.DisplayTitle(c.Title), course.FormatNumber(c.Units), course.FormatGrade(c.Grade))
	}
	if gpa, ok := course.GPA(courses); ok {
		fmt.Fprintf(&b, "\nCurrent weighted average: %s over %s units.\n",
			course.FormatNumber(gpa), course.FormatNumber(course.TotalUnits(courses)))
	}
	b.WriteString(`
Please analyze this data and provide:
1. Brief analysis of the current performance
2. Suggestions for potential areas of improvement
3. Any patterns you observe in the grades
4. Tips for maintaining or improving my GPA`)
	return b.String()
}
