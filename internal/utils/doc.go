// Package utils provides shared helper functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures a directory exists, creating it if necessary.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// GetDataPath returns the agentchat data directory (~/.agentchat).
func GetDataPath() string {
	home, _ := os.UserHomeDir()
	p := filepath.Join(home, ".agentchat")
	os.MkdirAll(p, 0755)
	return p
}

// GetLogsPath returns the directory holding per-process logs of `start`.
func GetLogsPath() string {
	p := filepath.Join(GetDataPath(), "logs")
	os.MkdirAll(p, 0755)
	return p
}

// TruncateString keeps the first maxLen runes of s and appends "..." when
// anything was cut.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 0 {
		maxLen = 0
	}
	return string(r[:maxLen]) + "..."
}

// SafeFilename converts a string to a safe filename by replacing unsafe characters.
func SafeFilename(name string) string {
	unsafe := `<>:"/\|?*`
	for _, c := range unsafe {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	return strings.TrimSpace(name)
}

// TitleCase upper-cases the first letter of each word; spaces, "_" and "-"
// separate words and are rejoined with single spaces.
func TitleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '_' || r == '-' })
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
