package netsync

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNetwork is returned when a connection cannot be established within
// the configured retry budget.
var ErrNetwork = errors.New("netsync: network failure")

// BackoffConfig shapes reconnection delays: exponential from Initial up
// to Max, for at most MaxRetries attempts.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	MaxRetries int
}

// DefaultBackoffConfig retries five times from a quarter second to ten
// seconds.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    250 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2.0,
		MaxRetries: 5,
	}
}

// Delay is the wait before the given zero-based retry attempt.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	d := c.Initial
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.Max {
			return c.Max
		}
	}
	if d > c.Max {
		return c.Max
	}
	return d
}

// Dialer opens a websocket to a relay URL. Injected so tests run without
// a network.
type Dialer func(url string) (*websocket.Conn, error)

func defaultDialer(url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// PooledConnection is one live relay connection. Writes are serialized;
// a failed write poisons the connection so the pool redials next time.
type PooledConnection struct {
	URL string

	mu      sync.Mutex
	conn    *websocket.Conn
	healthy bool
}

// Healthy reports whether the connection is still usable.
func (pc *PooledConnection) Healthy() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.healthy
}

// SendJSON writes one JSON message. On failure the connection is marked
// unhealthy and the write error is wrapped as a network error.
func (pc *PooledConnection) SendJSON(v interface{}) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.healthy || pc.conn == nil {
		return ErrNetwork
	}
	if err := pc.conn.WriteJSON(v); err != nil {
		pc.healthy = false
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return nil
}

// Close tears the connection down.
func (pc *PooledConnection) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.healthy = false
	if pc.conn == nil {
		return nil
	}
	err := pc.conn.Close()
	pc.conn = nil
	return err
}

// ConnectionPool hands out one connection per relay URL, redialing dead
// ones with exponential backoff.
type ConnectionPool struct {
	mu      sync.Mutex
	conns   map[string]*PooledConnection
	dialer  Dialer
	backoff BackoffConfig
	sleep   func(time.Duration)
	log     logrus.FieldLogger
}

// NewConnectionPool builds a pool with the given backoff. A nil dialer
// uses the real websocket dialer.
func NewConnectionPool(backoff BackoffConfig, dialer Dialer, logger logrus.FieldLogger) *ConnectionPool {
	if dialer == nil {
		dialer = defaultDialer
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &ConnectionPool{
		conns:   make(map[string]*PooledConnection),
		dialer:  dialer,
		backoff: backoff,
		sleep:   time.Sleep,
		log:     logger.WithField("component", "connpool"),
	}
}

// Get returns a healthy connection to the URL, dialing with retries if
// needed. Exhausted retries yield a wrapped ErrNetwork.
func (p *ConnectionPool) Get(url string) (*PooledConnection, error) {
	p.mu.Lock()
	if pc, found := p.conns[url]; found && pc.Healthy() {
		p.mu.Unlock()
		return pc, nil
	}
	p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= p.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			p.sleep(p.backoff.Delay(attempt - 1))
		}
		conn, err := p.dialer(url)
		if err != nil {
			lastErr = err
			p.log.WithFields(logrus.Fields{"url": url, "attempt": attempt}).
				WithError(err).Debug("dial failed")
			continue
		}
		pc := &PooledConnection{URL: url, conn: conn, healthy: true}
		p.mu.Lock()
		p.conns[url] = pc
		p.mu.Unlock()
		return pc, nil
	}
	return nil, fmt.Errorf("%w: dialing %s: %v", ErrNetwork, url, lastErr)
}

// CloseAll shuts every pooled connection.
func (p *ConnectionPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, pc := range p.conns {
		pc.Close()
		delete(p.conns, url)
	}
}
