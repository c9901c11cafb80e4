// ABOUTME: Voicelink relay wire protocol package
// ABOUTME: Defines protocol messages and the WebSocket session client
// Package protocol implements the voicelink relay protocol.
//
// A relay is a WebSocket endpoint that bridges the voice client to a live
// model. Messages are JSON envelopes {"type", "payload"}; microphone audio
// goes up as base64 PCM16 in "input/audio", synthesized audio comes back in
// "server/content" or as binary frames.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "relay.local:8927"})
//	session, err := client.Open(ctx, transport.Config{Voice: "Kore"}, handler)
//	err = session.SendAudio(frame)
package protocol
