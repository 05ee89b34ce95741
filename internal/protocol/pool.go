package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PoolKey identifies one logical connection target.
type PoolKey struct {
	Scheme              string
	Host                string
	Port                uint16
	CredentialFingerprint string
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s://%s:%d#%s", k.Scheme, k.Host, k.Port, k.CredentialFingerprint)
}

type pooledEntry struct {
	client   Client
	lastUsed time.Time
}

// Pool caches connected Clients per PoolKey, evicting ones idle longer
// than IdleTimeout. It is safe for concurrent use.
type Pool struct {
	IdleTimeout time.Duration

	mu      sync.Mutex
	entries map[PoolKey]*pooledEntry
	dialers map[PoolKey]Dialer
}

func NewPool(idleTimeout time.Duration) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &Pool{
		IdleTimeout: idleTimeout,
		entries:     make(map[PoolKey]*pooledEntry),
		dialers:     make(map[PoolKey]Dialer),
	}
}

// Register associates a Dialer with key, used lazily the first time
// Acquire(key) is called.
func (p *Pool) Register(key PoolKey, d Dialer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialers[key] = d
}

// Acquire returns a connected Client for key, reusing a pooled
// connection when one exists and is not stale.
func (p *Pool) Acquire(ctx context.Context, key PoolKey) (Client, error) {
	p.mu.Lock()
	p.evictLocked()
	if e, ok := p.entries[key]; ok {
		e.lastUsed = time.Now()
		p.mu.Unlock()
		return e.client, nil
	}
	dialer, ok := p.dialers[key]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("protocol: pool: no dialer registered for %s", key)
	}

	client, err := dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("protocol: pool: dial %s: %w", key, err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("protocol: pool: connect %s: %w", key, err)
	}

	p.mu.Lock()
	p.entries[key] = &pooledEntry{client: client, lastUsed: time.Now()}
	p.mu.Unlock()
	return client, nil
}

func (p *Pool) evictLocked() {
	cutoff := time.Now().Add(-p.IdleTimeout)
	for k, e := range p.entries {
		if e.lastUsed.Before(cutoff) {
			_ = e.client.Close()
			delete(p.entries, k)
		}
	}
}

// CloseAll closes every pooled connection.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.entries {
		_ = e.client.Close()
		delete(p.entries, k)
	}
}
