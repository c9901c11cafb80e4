// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and the oto implementation
// Package output provides audio playback.
//
// Outputs pull PCM16 from an io.Reader (normally a playback graph) instead
// of being pushed to, so the reader's frame count doubles as the playback
// clock.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(24000, 1, g)
//	defer out.Close()
package output
