package handle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"
)

var (
	errBadImage    = errors.New("bad image_b64")
	errEmptyPrompt = errors.New("prompt is empty")
)

// Extract: POST /v1/llm/extract.
func (h *Handle) Extract(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractInput
	if !decodePOST(w, r, &req) {
		return
	}
	ctx, cancel := withDeadline(r)
	defer cancel()

	out, hit, err := h.extract(ctx, req.LLMName, req.ImageB64, req.Mime)
	if err != nil {
		h.replyEngineError(w, "extract", err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "hit")
	}
	writeJSON(w, http.StatusOK, out)
}

// Generate: POST /v1/llm/generate.
func (h *Handle) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateInput
	if !decodePOST(w, r, &req) {
		return
	}
	ctx, cancel := withDeadline(r)
	defer cancel()

	txt, err := h.generate(ctx, req.LLMName, req.Prompt)
	if err != nil {
		h.replyEngineError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, types.TextResult{Result: txt})
}

// Analyze: POST /v1/llm/analyze.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeInput
	if !decodePOST(w, r, &req) {
		return
	}
	if len(req.Courses) == 0 {
		writeError(w, http.StatusBadRequest, "courses are empty")
		return
	}
	ctx, cancel := withDeadline(r)
	defer cancel()

	txt, err := h.generate(ctx, req.LLMName, ocr.AnalysisPrompt(req.Courses))
	if err != nil {
		h.replyEngineError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, types.TextResult{Result: txt})
}

// extract декодирует изображение, смотрит кэш и вызывает движок.
func (h *Handle) extract(ctx context.Context, llmName, b64, mime string) (extraction.Result, bool, error) {
	img, hint, err := util.DecodeBase64MaybeDataURL(b64)
	if err != nil {
		if errors.Is(err, util.ErrEmptyImage) {
			return extraction.Result{}, false, err
		}
		return extraction.Result{}, false, fmt.Errorf("%w: %v", errBadImage, err)
	}
	engine, err := h.engs.GetEngine(llmName)
	if err != nil {
		return extraction.Result{}, false, err
	}
	mime = util.PickMIME(mime, hint, img)
	hash := util.SHA256Hex(img)

	if h.cache != nil {
		if row, err := h.cache.FindByHash(hash, engine.Name(), engine.GetModel()); err == nil {
			h.log.Debug("extract cache hit", "engine", engine.Name(), "image_hash", hash)
			return row.Result, true, nil
		}
	}

	res, err := engine.ExtractCourses(ctx, types.ExtractRequest{Image: img, Mime: mime})
	if err != nil {
		return extraction.Result{}, false, err
	}
	if res.Courses == nil {
		res.Courses = []course.CourseData{}
	}
	h.log.Info("extract",
		"engine", engine.Name(),
		"model", engine.GetModel(),
		"success", res.Success,
		"error_kind", string(res.Error),
		"uncertain", res.Uncertain,
		"courses", len(res.Courses),
		"image", img)
	if h.cache != nil {
		h.cache.Upsert(hash, engine.Name(), engine.GetModel(), res)
	}
	return res, false, nil
}

func (h *Handle) generate(ctx context.Context, llmName, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	engine, err := h.engs.GetEngine(llmName)
	if err != nil {
		return "", err
	}
	return engine.GenerateContent(ctx, prompt)
}

func (h *Handle) replyEngineError(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if errors.Is(err, errBadImage) || errors.Is(err, errEmptyPrompt) {
		code = http.StatusBadRequest
	}
	if code >= http.StatusInternalServerError {
		h.log.Error(op+" failed", "status", code, "err", err)
	} else {
		h.log.Warn(op+" rejected", "status", code, "err", err)
	}
	writeError(w, code, op+" error: "+err.Error())
}
