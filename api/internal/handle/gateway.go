package handle

import (
	"encoding/json"
	"net/http"

	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
)

// Gateway: POST /api/gemini, конверт {action, data} в формате веб-клиента.
func (h *Handle) Gateway(w http.ResponseWriter, r *http.Request) {
	var req types.ActionRequest
	if !decodePOST(w, r, &req) {
		return
	}
	ctx, cancel := withDeadline(r)
	defer cancel()

	switch req.Action {
	case types.ActionGenerateContent:
		var data types.GenerateData
		if !decodeData(w, req.Data, &data) {
			return
		}
		txt, err := h.generate(ctx, req.LLMName, data.Prompt)
		if err != nil {
			h.replyEngineError(w, "generate", err)
			return
		}
		writeJSON(w, http.StatusOK, types.TextResult{Result: txt})

	case types.ActionAnalyzeGPA:
		var data types.AnalyzeData
		if !decodeData(w, req.Data, &data) {
			return
		}
		if len(data.Courses) == 0 {
			writeError(w, http.StatusBadRequest, "courses are empty")
			return
		}
		txt, err := h.generate(ctx, req.LLMName, ocr.AnalysisPrompt(data.Courses))
		if err != nil {
			h.replyEngineError(w, "analyze", err)
			return
		}
		writeJSON(w, http.StatusOK, types.TextResult{Result: txt})

	case types.ActionExtractGrades:
		var data types.ExtractGradesData
		if !decodeData(w, req.Data, &data) {
			return
		}
		out, hit, err := h.extract(ctx, req.LLMName, data.ImageBase64, data.MimeType)
		if err != nil {
			h.replyEngineError(w, "extract", err)
			return
		}
		if hit {
			w.Header().Set("X-Cache", "hit")
		}
		writeJSON(w, http.StatusOK, out)

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

func decodeData(w http.ResponseWriter, raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "data is required")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad data: "+err.Error())
		return false
	}
	return true
}
