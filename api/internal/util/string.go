package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("no JSON object found in model response")

func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject вырезает кусок от первой '{' до последней '}'.
// Модель может обернуть JSON в прозу или ```json```; валидность здесь не проверяется.
func ExtractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Truncate режет строку по рунам, для логов.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
