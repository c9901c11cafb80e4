// ABOUTME: Tests for transcript accumulation and user messages
// ABOUTME: Covers turn flushing order, truncation and memory helpers
package session

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/voicelink-go/internal/capture"
)

func TestTranscriptFlush(t *testing.T) {
	var tr transcript

	tr.addOutput("Hel")
	tr.addInput("hi ")
	tr.addOutput("lo")
	tr.addInput("there")
	assert.Equal(t, []Item{
		{Role: RoleUser, Text: "hi there"},
		{Role: RoleModel, Text: "Hello"},
	}, tr.flush())

	assert.Nil(t, tr.flush())

	tr.addOutput("only the model")
	assert.Equal(t, []Item{{Role: RoleModel, Text: "only the model"}}, tr.flush())
	assert.Len(t, tr.history(), 3)
}

func TestTruncate(t *testing.T) {
	short := "connection reset"
	assert.Equal(t, short, truncate(short))

	exact := strings.Repeat("x", maxErrorLength)
	assert.Equal(t, exact, truncate(exact))

	long := strings.Repeat("é", maxErrorLength+10)
	got := truncate(long)
	assert.Equal(t, strings.Repeat("é", maxErrorLength)+"...", got)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingAPIKey, "Missing API Key. Please check your configuration."},
		{ErrNoInternet, "No internet connection. Please check your network."},
		{&capture.AcquireError{Cause: capture.ErrDeviceNotFound, Err: errors.New("x")}, "No microphone found. Please connect a microphone."},
		{errors.New("something odd"), "something odd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, userMessage(tt.err))
	}
}

func TestFileMemory(t *testing.T) {
	mem := NewFileMemory(filepath.Join(t.TempDir(), "nested", "memory.txt"))

	text, err := mem.Load()
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, mem.Save("- prefers short answers"))
	text, err = mem.Load()
	require.NoError(t, err)
	assert.Equal(t, "- prefers short answers", text)
}

func TestWithMemory(t *testing.T) {
	assert.Equal(t, "base", withMemory("base", ""))
	assert.Equal(t, "USER MEMORY: m", withMemory("", "m"))
	assert.Equal(t, "base\n\nUSER MEMORY: m", withMemory("base", "m"))
}
