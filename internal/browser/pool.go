// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionPool implements the Pool interface. Sessions are created lazily
// up to maxSize and handed out for reuse across repeated runs.
type SessionPool struct {
	config      *Config
	sessions    chan Driver
	maxSize     int
	currentSize int
	mu          sync.RWMutex
	closed      bool
}

// NewSessionPool creates a new session pool
func NewSessionPool(config *Config, maxSize int) (*SessionPool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if maxSize <= 0 {
		maxSize = 1 // One reusable session unless asked for more
	}

	pool := &SessionPool{
		config:   config,
		sessions: make(chan Driver, maxSize),
		maxSize:  maxSize,
	}

	return pool, nil
}

// Get retrieves a session from the pool or creates a new one
func (p *SessionPool) Get(ctx context.Context) (Driver, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("pool is closed")
	}
	p.mu.RUnlock()

	select {
	case session := <-p.sessions:
		if session == nil {
			return nil, fmt.Errorf("pool is closed")
		}
		return session, nil
	default:
	}

	// No idle session, create a new one if under the limit. The slot is
	// reserved before launching so concurrent callers cannot overshoot.
	p.mu.Lock()
	if p.currentSize < p.maxSize {
		p.currentSize++
		p.mu.Unlock()

		session, err := NewSession(p.config)
		if err != nil {
			p.mu.Lock()
			p.currentSize--
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return session, nil
	}
	p.mu.Unlock()

	// Wait for a session to be returned
	select {
	case session := <-p.sessions:
		if session == nil {
			return nil, fmt.Errorf("pool is closed")
		}
		return session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timeout waiting for available session")
	}
}

// Put returns a session to the pool
func (p *SessionPool) Put(session Driver) error {
	if session == nil {
		return fmt.Errorf("cannot put nil session in pool")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		session.Close()
		return fmt.Errorf("pool is closed")
	}

	select {
	case p.sessions <- session:
		return nil
	default:
		// Pool is full, close the session
		session.Close()
		p.currentSize--
		return nil
	}
}

// Size returns the current number of idle sessions in the pool
func (p *SessionPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// TotalSize returns the total number of sessions created
func (p *SessionPool) TotalSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentSize
}

// Close closes all sessions in the pool
func (p *SessionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	close(p.sessions)
	for session := range p.sessions {
		session.Close()
	}

	p.currentSize = 0
	return nil
}
