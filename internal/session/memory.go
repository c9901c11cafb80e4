// ABOUTME: Persistent conversation memory
// ABOUTME: Plain-text file holding what the assistant remembers about the user
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Memory stores the summary carried between sessions
type Memory interface {
	Load() (string, error)
	Save(text string) error
}

// FileMemory keeps memory in a text file
type FileMemory struct {
	path string
}

// NewFileMemory returns a memory backed by path
func NewFileMemory(path string) *FileMemory {
	return &FileMemory{path: path}
}

// Load returns the stored memory; a missing file is empty memory
func (m *FileMemory) Load() (string, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read memory: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored memory
func (m *FileMemory) Save(text string) error {
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create memory directory: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write memory: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace memory: %w", err)
	}
	return nil
}

// withMemory appends remembered facts to the system instruction
func withMemory(instruction, memory string) string {
	if memory == "" {
		return instruction
	}
	if instruction == "" {
		return "USER MEMORY: " + memory
	}
	return instruction + "\n\nUSER MEMORY: " + memory
}
