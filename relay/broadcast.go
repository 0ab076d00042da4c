package relay

import (
	"encoding/json"
	"errors"
	"github.com/gammazero/workerpool"
	"github.com/labstack/gommon/log"
	"hash/fnv"
	"partywatch.live/pkg/msgbroker"
	"partywatch.live/room"
	"sync"
)

// broadcast sends v to every member of rm except exclude. Each send runs in
// its own goroutine against a membership snapshot, so a slow peer holds up
// nothing but its own write. Members whose send fails are disconnected once
// the fan-out is over.
func (r *Relay) broadcast(rm *room.Room, v interface{}, exclude string) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		return
	}
	r.publishRaw(rm.Code(), b)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stale []string
	)
	for _, m := range rm.Members() {
		if m.ConnectionID == exclude {
			continue
		}
		connID := m.ConnectionID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.conns.Send(connID, b); err != nil {
				log.Warnf("send to %s in room %s: %v", connID, rm.Code(), err)
				mu.Lock()
				stale = append(stale, connID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, connID := range stale {
		r.disconnect(rm, connID)
	}
}

// sendTo delivers v to a single member; a failed send disconnects it
func (r *Relay) sendTo(rm *room.Room, connID string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		return
	}
	if err = r.conns.Send(connID, b); err != nil {
		log.Warnf("send to %s in room %s: %v", connID, rm.Code(), err)
		r.disconnect(rm, connID)
	}
}

// publish mirrors an event onto the broker feed
func (r *Relay) publish(code string, v interface{}) {
	if r.msgBroker == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		return
	}
	r.publishRaw(code, b)
}

// publishRaw queues b for the room's event channel. Every room maps to one
// single-worker pool, so events of a room reach the broker in the order they
// were queued.
func (r *Relay) publishRaw(code string, b []byte) {
	if r.msgBroker == nil {
		return
	}
	channel := r.config.EventsChannel + code
	r.publisher(code).Submit(func() {
		err := r.msgBroker.Publish(b, channel)
		switch {
		case err == nil:
		case errors.Is(err, msgbroker.ErrNoRecipients):
			log.Debugf("event on %s: %v", channel, err)
		default:
			log.Warnf("event on %s: %v", channel, err)
		}
	})
}

func (r *Relay) publisher(code string) *workerpool.WorkerPool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	return r.publishers[h.Sum32()%uint32(len(r.publishers))]
}
