package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_Creates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	result, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, result)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDir_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	result, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, result)
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := GetDataPath()
	assert.Equal(t, ".agentchat", filepath.Base(p))
	assert.DirExists(t, p)
	assert.DirExists(t, GetLogsPath())
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"chat-2025-01-01-demo", "chat-2025-01-01-demo"},
		{`a<b>c:d"e`, "a_b_c_d_e"},
		{"file/with\\slash", "file_with_slash"},
		{"a|b?c*d", "a_b_c_d"},
		{"  spaces  ", "spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hello", TruncateString("hello", 5))
	assert.Equal(t, "hel...", TruncateString("hello", 3))
	assert.Equal(t, "...", TruncateString("hello", 0))
	assert.Equal(t, "héll...", TruncateString("héllo wörld", 4))

	long := strings.Repeat("x", 250)
	assert.Len(t, TruncateString(long, 200), 203)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Ada", TitleCase("ada"))
	assert.Equal(t, "Agent Smith", TitleCase("agent_smith"))
	assert.Equal(t, "Dr Who", TitleCase("dr-who"))
	assert.Equal(t, "", TitleCase(""))
}
