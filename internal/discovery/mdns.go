// ABOUTME: mDNS discovery of voicelink relays
// ABOUTME: Browses the local network for _voicelink._tcp services
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ServiceType is the mDNS service relays advertise
const ServiceType = "_voicelink._tcp"

const queryTimeout = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	Service string        // defaults to ServiceType
	Timeout time.Duration // per query round
}

// RelayInfo describes a discovered relay
type RelayInfo struct {
	Name   string
	Host   string
	Port   int
	Path   string
	Secure bool
}

// Addr returns host:port
func (r *RelayInfo) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Manager browses for relays
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	relays chan *RelayInfo
	query  func(*mdns.QueryParam) error
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Service == "" {
		config.Service = ServiceType
	}
	if config.Timeout <= 0 {
		config.Timeout = queryTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		relays: make(chan *RelayInfo, 10),
		query:  mdns.Query,
	}
}

// Browse starts searching for relays in the background
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop keeps querying until stopped
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		forwarded := make(chan struct{})

		go func() {
			defer close(forwarded)
			for entry := range entries {
				relay, ok := relayFromEntry(entry)
				if !ok {
					continue
				}
				log.Info().Str("name", relay.Name).Str("addr", relay.Addr()).Msg("discovered relay")

				select {
				case m.relays <- relay:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: m.config.Service,
			Domain:  "local",
			Timeout: m.config.Timeout,
			Entries: entries,
		}
		if err := m.query(params); err != nil {
			log.Debug().Err(err).Msg("mDNS query failed")
			select {
			case <-time.After(m.config.Timeout):
			case <-m.ctx.Done():
			}
		}
		close(entries)
		<-forwarded
	}
}

// relayFromEntry converts an mDNS answer; entries without an address are
// skipped
func relayFromEntry(entry *mdns.ServiceEntry) (*RelayInfo, bool) {
	if entry == nil || entry.Port == 0 {
		return nil, false
	}
	relay := &RelayInfo{Name: entry.Name, Port: entry.Port}
	switch {
	case entry.AddrV4 != nil:
		relay.Host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		relay.Host = entry.AddrV6.String()
	default:
		return nil, false
	}

	for _, field := range entry.InfoFields {
		key, value, _ := strings.Cut(field, "=")
		switch key {
		case "path":
			relay.Path = value
		case "secure":
			relay.Secure = value == "1" || value == "true"
		}
	}
	return relay, true
}

// Relays returns the channel of discovered relays
func (m *Manager) Relays() <-chan *RelayInfo {
	return m.relays
}

// Find browses until the first relay answers or ctx ends
func (m *Manager) Find(ctx context.Context) (*RelayInfo, error) {
	m.Browse()
	defer m.Stop()

	select {
	case relay := <-m.relays:
		return relay, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("no %s relay found", m.config.Service)
		}
		return nil, ctx.Err()
	}
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}
