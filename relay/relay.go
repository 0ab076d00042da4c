package relay

import (
	"github.com/gammazero/workerpool"
	"github.com/labstack/gommon/log"
	"net"
	"partywatch.live/config"
	"partywatch.live/model"
	"partywatch.live/pkg/msgbroker"
	"partywatch.live/pkg/registry"
	"partywatch.live/room"
	"sync"
	"time"
)

// Relay groups live connections into rooms and fans room events out to them
type Relay struct {
	config     *config.Config
	rooms      *room.Directory
	conns      *registry.Registry
	publishers []*workerpool.WorkerPool
	msgBroker  msgbroker.MessageBroker
	now        func() time.Time

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// New creates a relay. mb may be nil, in which case no events are published.
func New(c *config.Config, mb msgbroker.MessageBroker) *Relay {
	workers := c.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	publishers := make([]*workerpool.WorkerPool, workers)
	for i := range publishers {
		publishers[i] = workerpool.New(1)
	}
	return &Relay{
		config:     c,
		rooms:      room.NewDirectory(),
		conns:      registry.New(c.SendTimeout, c.MaxMessageSize),
		publishers: publishers,
		msgBroker:  mb,
		now:        time.Now,
	}
}

// Serve runs the protocol for an upgraded websocket connection and returns
// once the connection is gone
func (r *Relay) Serve(raw net.Conn) {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		_ = raw.Close()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	c := r.conns.Accept(raw)
	defer r.conns.Close(c.ID())

	hs, err := r.handshake(c)
	if err != nil {
		log.Warnf("connection %s rejected: %v", c.ID(), err)
		r.conns.CloseWithStatus(c.ID(), statusPolicyViolation, "Missing required connection parameters")
		return
	}

	rm, self := r.join(c, hs)
	defer r.disconnect(rm, c.ID())

	stop := r.keepalive(c)
	defer stop()

	r.receive(rm, self, c)
}

// Stats returns live rooms, room members and open connections
func (r *Relay) Stats() (rooms, members, connections int) {
	rooms, members = r.rooms.Stats()
	return rooms, members, r.conns.Len()
}

// Snapshot returns the current state of a live room
func (r *Relay) Snapshot(code string) (model.RoomSnapshot, bool) {
	rm, ok := r.rooms.Get(code)
	if !ok {
		return model.RoomSnapshot{}, false
	}
	return rm.Snapshot(), true
}

// Close drops every connection, waits for their loops to finish and
// drains the event publishers
func (r *Relay) Close() {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	r.conns.CloseAll()
	r.wg.Wait()
	for _, p := range r.publishers {
		p.StopWait()
	}
}

// keepalive pings c periodically; a failed ping releases the connection,
// which ends its receive loop
func (r *Relay) keepalive(c *registry.Conn) func() {
	if r.config.PingInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-c.Done():
				return
			case <-ticker.C:
				if err := r.conns.Ping(c.ID()); err != nil {
					log.Warnf("ping %s: %v", c.ID(), err)
					r.conns.Close(c.ID())
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
