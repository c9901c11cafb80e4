// ABOUTME: Conversation transcript accumulation
// ABOUTME: Buffers streaming transcription deltas until the turn completes
package session

import "strings"

// Roles of transcript items
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Item is one finished utterance
type Item struct {
	Role string
	Text string
}

// transcript collects deltas in arrival order. Not safe for concurrent use.
type transcript struct {
	input  strings.Builder
	output strings.Builder
	items  []Item
}

func (t *transcript) addInput(delta string) {
	t.input.WriteString(delta)
}

func (t *transcript) addOutput(delta string) {
	t.output.WriteString(delta)
}

// flush ends the turn and returns the items it produced: the user's words
// first, then the model's, skipping empty sides
func (t *transcript) flush() []Item {
	var flushed []Item
	if in := t.input.String(); in != "" {
		flushed = append(flushed, Item{Role: RoleUser, Text: in})
	}
	if out := t.output.String(); out != "" {
		flushed = append(flushed, Item{Role: RoleModel, Text: out})
	}
	t.input.Reset()
	t.output.Reset()
	t.items = append(t.items, flushed...)
	return flushed
}

// history returns every flushed item
func (t *transcript) history() []Item {
	return append([]Item(nil), t.items...)
}
