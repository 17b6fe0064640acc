package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrPromptNotFound = errors.New("prompt not found")

// LoadPrompt читает <dir>/<provider>/<name>.<kind>.txt, затем <dir>/<name>.<kind>.txt.
// Пустой dir означает «переопределений нет».
func LoadPrompt(dir, provider, name, kind string) (string, error) {
	if dir == "" {
		return "", ErrPromptNotFound
	}
	file := fmt.Sprintf("%s.%s.txt", name, kind)
	candidates := []string{filepath.Join(dir, file)}
	if provider != "" {
		candidates = append([]string{filepath.Join(dir, strings.ToLower(provider), file)}, candidates...)
	}
	for _, p := range candidates {
		if b, err := os.ReadFile(p); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s (provider=%q) in %s", ErrPromptNotFound, file, provider, dir)
}

// WriteFileAtomic пишет во временный файл рядом и переименовывает его поверх path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("make dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(perm)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
