// ABOUTME: Network connectivity watcher
// ABOUTME: Probes a well-known host and notifies subscribers when the network returns
package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Connectivity reports network reachability
type Connectivity interface {
	// Online probes the network now and may block until ctx or a timeout
	Online(ctx context.Context) bool
	// Subscribe registers fn for offline-to-online transitions and returns
	// a function that removes it
	Subscribe(fn func()) func()
}

// Default probe settings
const (
	DefaultProbeAddr     = "generativelanguage.googleapis.com:443"
	DefaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// Watcher probes connectivity with a TCP dial
type Watcher struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)

	online atomic.Bool

	mu   sync.Mutex
	subs map[int]func()
	next int
}

// NewWatcher creates a watcher for addr; zero values select the defaults
func NewWatcher(addr string, interval time.Duration) *Watcher {
	if addr == "" {
		addr = DefaultProbeAddr
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	d := &net.Dialer{}
	w := &Watcher{
		addr:     addr,
		interval: interval,
		timeout:  defaultProbeTimeout,
		dial:     d.DialContext,
		subs:     make(map[int]func()),
	}
	w.online.Store(true)
	return w
}

// Online dials the probe address
func (w *Watcher) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	conn, err := w.dial(ctx, "tcp", w.addr)
	if err != nil {
		log.Debug().Err(err).Str("addr", w.addr).Msg("connectivity probe failed")
		return false
	}
	conn.Close()
	return true
}

// Subscribe registers fn for restored connectivity
func (w *Watcher) Subscribe(fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Run probes every interval until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.update(w.Online(ctx))
		}
	}
}

// update records a probe result and notifies on offline-to-online
func (w *Watcher) update(online bool) {
	was := w.online.Swap(online)
	if was == online {
		return
	}
	if !online {
		log.Warn().Msg("network connection lost")
		return
	}

	log.Info().Msg("network connection restored")
	w.mu.Lock()
	subs := make([]func(), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
