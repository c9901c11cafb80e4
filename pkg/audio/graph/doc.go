// ABOUTME: Playback signal graph package
// ABOUTME: Voice mixing, dynamics compression, smoothed gain and analyser tap
// Package graph implements the playback signal path:
//
//	voices -> compressor -> gain -> analyser -> output device
//
// Graph implements io.Reader so an output device can pull mono PCM16 from it.
// Its clock advances with every rendered frame, which makes it the timeline
// that scheduled voices start on.
//
// Example:
//
//	g := graph.New(graph.Config{SampleRate: 24000, Volume: 3.5, Enhancer: true})
//	v := g.Start(buf, g.CurrentTime(), 1.0, onEnded)
//	g.SetVolume(2.0)
package graph
