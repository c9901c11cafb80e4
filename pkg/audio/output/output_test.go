// ABOUTME: Audio output interface tests
// ABOUTME: Verifies Output implementation and idempotent close
package output

import (
	"testing"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestOtoCloseWithoutOpen(t *testing.T) {
	out := NewOto()
	if out == nil {
		t.Fatal("NewOto returned nil")
	}
	if err := out.Close(); err != nil {
		t.Errorf("Close() on unopened output: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Errorf("second Close(): %v", err)
	}
}
