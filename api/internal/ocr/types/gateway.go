package types

import (
	"encoding/json"

	"gwa-helper/api/internal/course"
)

// Действия конверта POST /api/gemini.
const (
	ActionGenerateContent = "generateContent"
	ActionAnalyzeGPA      = "analyzeGPA"
	ActionExtractGrades   = "extractGrades"
)

// ActionRequest: конверт {action, data}; data разбирается по action.
type ActionRequest struct {
	Action  string          `json:"action"`
	Data    json.RawMessage `json:"data"`
	LLMName string          `json:"llm_name,omitempty"`
}

type GenerateData struct {
	Prompt string `json:"prompt"`
}

type AnalyzeData struct {
	Courses []course.Course `json:"courses"`
}

type ExtractGradesData struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

// TextResult: ответ generateContent/analyzeGPA.
type TextResult struct {
	Result string `json:"result"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// GenerateInput: тело POST /v1/llm/generate.
type GenerateInput struct {
	LLMName string `json:"llm_name"`
	Prompt  string `json:"prompt"`
}

// AnalyzeInput: тело POST /v1/llm/analyze.
type AnalyzeInput struct {
	LLMName string          `json:"llm_name"`
	Courses []course.Course `json:"courses"`
}

type MergeInput struct {
	Existing         []course.Course     `json:"existing"`
	Incoming         []course.CourseData `json:"incoming"`
	Strategy         string              `json:"strategy"`
	AllowEmptyTitles bool                `json:"allow_empty_titles"`
}

type GPAInput struct {
	Courses []course.Course `json:"courses"`
}

type GPAResult struct {
	GPA        *float64 `json:"gpa"`
	TotalUnits float64  `json:"total_units"`
	Graded     int      `json:"graded_courses"`
}
