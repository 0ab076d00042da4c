package room

import (
	"github.com/labstack/gommon/log"
	"partywatch.live/model"
	"sync"
)

// Directory maps room codes to live rooms. Rooms are created on first join
// and dropped as soon as they become empty.
type Directory struct {
	sync.RWMutex
	rooms map[string]*Room
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the live room for code, creating it if absent.
// A closed room still present in the map is replaced.
func (d *Directory) GetOrCreate(code string) *Room {
	d.RLock()
	r, ok := d.rooms[code]
	d.RUnlock()
	if ok && !r.Closed() {
		return r
	}

	d.Lock()
	defer d.Unlock()
	if r, ok = d.rooms[code]; !ok || r.Closed() {
		r = New(code)
		d.rooms[code] = r
		log.Infof("room %s created", code)
	}
	return r
}

// Get returns the live room for code
func (d *Directory) Get(code string) (*Room, bool) {
	d.RLock()
	r, ok := d.rooms[code]
	d.RUnlock()
	if !ok || r.Closed() {
		return nil, false
	}
	return r, true
}

// Join adds a member to the room for code. A join that races the teardown
// of the same room retries against a fresh one.
func (d *Directory) Join(code, userID, username, connID string) (*Room, model.Member, model.RoomSnapshot) {
	for {
		r := d.GetOrCreate(code)
		m, snap, err := r.Join(userID, username, connID)
		if err == ErrClosed {
			continue
		}
		return r, m, snap
	}
}

// Leave removes connID from r and discards r when it became empty.
// removed reports whether the room was torn down by this call.
func (d *Directory) Leave(r *Room, connID string) (m model.Member, ok bool, removed bool) {
	m, remaining, ok := r.Leave(connID)
	if ok && remaining == 0 {
		d.discard(r)
		removed = true
	}
	return m, ok, removed
}

// RemoveIfEmpty drops the room for code if it has no members
func (d *Directory) RemoveIfEmpty(code string) bool {
	d.RLock()
	r, ok := d.rooms[code]
	d.RUnlock()
	if !ok {
		return false
	}
	return d.discard(r)
}

func (d *Directory) discard(r *Room) bool {
	d.Lock()
	defer d.Unlock()
	if d.rooms[r.code] != r || !r.closeIfEmpty() {
		return false
	}
	delete(d.rooms, r.code)
	log.Infof("room %s removed", r.code)
	return true
}

// Stats returns the number of live rooms and members
func (d *Directory) Stats() (rooms, members int) {
	d.RLock()
	defer d.RUnlock()
	for _, r := range d.rooms {
		n := r.Len()
		if n == 0 {
			continue
		}
		rooms++
		members += n
	}
	return rooms, members
}
