package llm

import (
	"net/http"
	"sync"
	"time"
)

// PoolConfig configures the shared transport, grounded on the
// gateway's provider.PoolConfig defaults.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultPoolConfig mirrors the gateway's connection pool defaults,
// sized down from a multi-vendor registry to this service's single
// LLM endpoint.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ConnectionPool holds one shared *http.Client for the configured LLM
// endpoint, built once and reused across every call instead of one
// *http.Transport per request.
type ConnectionPool struct {
	once   sync.Once
	cfg    PoolConfig
	client *http.Client
}

// NewConnectionPool builds a pool that constructs its client lazily on
// first use (double-checked init, per the gateway's provider/pool.go).
func NewConnectionPool(cfg PoolConfig) *ConnectionPool {
	return &ConnectionPool{cfg: cfg}
}

// Client returns the shared *http.Client, building it on first call.
func (p *ConnectionPool) Client(requestTimeout time.Duration) *http.Client {
	p.once.Do(func() {
		transport := &http.Transport{
			MaxIdleConns:        p.cfg.MaxIdleConns,
			MaxIdleConnsPerHost: p.cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     p.cfg.IdleConnTimeout,
		}
		p.client = &http.Client{Transport: transport, Timeout: requestTimeout}
	})
	return p.client
}
