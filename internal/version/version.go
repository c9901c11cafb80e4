// ABOUTME: Version information for the voicelink client
// ABOUTME: Reported in the relay handshake and the TUI header
package version

const (
	// Version is the client release
	Version = "0.3.0"
	// Product is the product name sent to relays
	Product = "Voicelink"
	// Manufacturer identifies the vendor
	Manufacturer = "Resonate Protocol"
)
