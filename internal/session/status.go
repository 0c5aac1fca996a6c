package session

import (
	"sync"
	"time"
)

// Status is the externally visible connection state. Identity is set if and
// only if Connected is true; QRCode is a PNG data URL present only while a
// pairing is pending.
type Status struct {
	Connected bool   `json:"isConnected"`
	Identity  string `json:"connectedNumber,omitempty"`
	QRCode    string `json:"qrCode,omitempty"`
}

// projection holds the one piece of shared mutable session state. Lifecycle
// handlers are the only writers; HTTP readers get copies.
type projection struct {
	mu             sync.RWMutex
	status         Status
	lastQRIssuedAt time.Time
}

func (p *projection) get() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *projection) setReady(identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = Status{Connected: true, Identity: identity}
}

// setQR records a pending pairing; issuing a QR implies the session is not
// connected. Returns false when the previous QR is younger than debounce.
func (p *projection) setQR(image string, debounce time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastQRIssuedAt.IsZero() && now.Sub(p.lastQRIssuedAt) < debounce {
		return false
	}
	p.lastQRIssuedAt = now
	p.status = Status{QRCode: image}
	return true
}

func (p *projection) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = Status{}
}
