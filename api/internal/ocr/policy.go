package ocr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"
)

// DecodeExtraction достаёт JSON-объект из ответа модели (проза и ```json``` допустимы),
// приводит числа и применяет ApplyExtractPolicy.
func DecodeExtraction(text string) (extraction.Result, error) {
	if strings.TrimSpace(text) == "" {
		return extraction.Result{}, ErrEmptyResponse
	}
	obj, err := util.ExtractJSONObject(text)
	if err != nil {
		return extraction.Result{}, err
	}
	var raw types.ExtractResponse
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return extraction.Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	res := raw.ToResult()
	ApplyExtractPolicy(&res)
	return res, nil
}

// ApplyExtractPolicy понижает уверенный успешный результат до uncertain, если
// хоть у одного курса дробные units: units по контракту только целые, значит
// колонки перепутаны.
func ApplyExtractPolicy(r *extraction.Result) {
	if !r.Success || r.Uncertain {
		return
	}
	for _, c := range r.Courses {
		if c.Units != math.Trunc(c.Units) {
			r.Uncertain = true
			r.Error = extraction.ErrorUncertainData
			return
		}
	}
}
