package handle

import (
	"net/http"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/ocr/types"
)

// Merge: POST /v1/courses/merge. Без состояния: список курсов присылает клиент.
func (h *Handle) Merge(w http.ResponseWriter, r *http.Request) {
	var req types.MergeInput
	if !decodePOST(w, r, &req) {
		return
	}
	strategy, err := course.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := course.Merge(req.Existing, req.Incoming, course.MergeOptions{
		Strategy:         strategy,
		AllowEmptyTitles: req.AllowEmptyTitles,
	})
	if res.Duplicates == nil {
		res.Duplicates = []course.Resolution{}
	}
	writeJSON(w, http.StatusOK, res)
}

// GPA: POST /v1/courses/gpa; gpa=null, если оценённых курсов нет.
func (h *Handle) GPA(w http.ResponseWriter, r *http.Request) {
	var req types.GPAInput
	if !decodePOST(w, r, &req) {
		return
	}
	out := types.GPAResult{TotalUnits: course.TotalUnits(req.Courses)}
	if gpa, ok := course.GPA(req.Courses); ok {
		out.GPA = &gpa
	}
	for _, c := range req.Courses {
		if c.Grade != nil && c.Units > 0 {
			out.Graded++
		}
	}
	writeJSON(w, http.StatusOK, out)
}
