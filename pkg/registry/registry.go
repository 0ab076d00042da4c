package registry

import (
	"errors"
	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"net"
	"sync"
	"time"
)

var (
	// ErrStale means the target can no longer be written to: it is closed,
	// unknown, or did not accept the frame within the send timeout.
	ErrStale = errors.New("registry: stale connection")
	// ErrPeerClosed means the peer sent a close frame
	ErrPeerClosed = errors.New("registry: closed by peer")
	// ErrFrameTooLarge means an inbound message exceeded the size cap and was dropped
	ErrFrameTooLarge = errors.New("registry: frame too large")
)

// Registry maps connection ids to live transports
type Registry struct {
	sync.RWMutex
	conns       map[string]*Conn
	sendTimeout time.Duration
	maxSize     int64
	closed      bool
}

func New(sendTimeout time.Duration, maxSize int64) *Registry {
	return &Registry{
		conns:       make(map[string]*Conn),
		sendTimeout: sendTimeout,
		maxSize:     maxSize,
	}
}

// Accept takes ownership of raw and assigns it a fresh id.
// After CloseAll the returned connection is already released.
func (r *Registry) Accept(raw net.Conn) *Conn {
	r.Lock()
	defer r.Unlock()
	id := uuid.NewString()
	for _, exists := r.conns[id]; exists; _, exists = r.conns[id] {
		id = uuid.NewString()
	}
	c := newConn(id, raw, r.maxSize, r.sendTimeout)
	if r.closed {
		c.close()
		return c
	}
	r.conns[id] = c
	return c
}

func (r *Registry) Get(id string) (*Conn, bool) {
	r.RLock()
	c, ok := r.conns[id]
	r.RUnlock()
	return c, ok
}

// Send writes a text frame to id. Any failure is reported as ErrStale and
// leaves cleanup to the caller.
func (r *Registry) Send(id string, p []byte) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrStale
	}
	return c.write(ws.OpText, p, r.sendTimeout)
}

func (r *Registry) Ping(id string) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrStale
	}
	return c.write(ws.OpPing, nil, r.sendTimeout)
}

// Close releases the transport for id. Unknown or already closed ids are ignored.
func (r *Registry) Close(id string) {
	r.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.Unlock()
	if ok && c.close() {
		log.Debugf("connection %s closed", id)
	}
}

// CloseWithStatus sends a close frame carrying code and reason, then releases the transport
func (r *Registry) CloseWithStatus(id string, code ws.StatusCode, reason string) {
	if c, ok := r.Get(id); ok {
		if err := c.write(ws.OpClose, ws.NewCloseFrameBody(code, reason), r.sendTimeout); err != nil {
			log.Debugf("close frame to %s: %v", id, err)
		}
	}
	r.Close(id)
}

// CloseAll releases every registered transport and rejects new ones
func (r *Registry) CloseAll() {
	r.Lock()
	r.closed = true
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.Unlock()
	for _, id := range ids {
		r.CloseWithStatus(id, ws.StatusGoingAway, "server shutting down")
	}
}

func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.conns)
}
