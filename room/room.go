package room

import (
	"errors"
	"partywatch.live/model"
	"sync"
	"time"
)

// HistorySize is the number of chat messages a room keeps for late joiners
const HistorySize = 100

// ErrClosed is returned when joining a room that was torn down after its last member left
var ErrClosed = errors.New("room: closed")

// Room owns one room's membership, host designation, playback state and chat history.
// Every read and write goes through mu.
type Room struct {
	code     string
	mu       sync.Mutex
	members  []model.Member
	hostID   string
	playback model.PlaybackState
	history  []model.ChatMessage
	closed   bool
}

func New(code string) *Room {
	return &Room{
		code:     code,
		members:  make([]model.Member, 0),
		playback: model.DefaultPlaybackState,
		history:  make([]model.ChatMessage, 0, HistorySize),
	}
}

func (r *Room) Code() string {
	return r.code
}

// Join appends a member for connID and returns it together with the snapshot
// taken right after the join. The first member of a fresh room becomes host.
func (r *Room) Join(userID, username, connID string) (model.Member, model.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return model.Member{}, model.RoomSnapshot{}, ErrClosed
	}

	m := model.Member{
		UserID:       userID,
		Username:     username,
		ConnectionID: connID,
		JoinedAt:     time.Now(),
	}
	if len(r.members) == 0 && r.hostID == "" {
		m.IsHost = true
		r.hostID = userID
	}
	r.members = append(r.members, m)
	return m, r.snapshot(), nil
}

// Leave removes the member bound to connID. ok is false when there was none.
// A room left with no members is closed and must not be joined again.
func (r *Room) Leave(connID string) (m model.Member, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.members {
		if r.members[i].ConnectionID == connID {
			m, ok = r.members[i], true
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	if ok && len(r.members) == 0 {
		r.closed = true
	}
	return m, len(r.members), ok
}

// UpdatePlayback replaces the playback state as a whole
func (r *Room) UpdatePlayback(s model.PlaybackState) {
	r.mu.Lock()
	r.playback = s
	r.mu.Unlock()
}

// AppendChat appends msg and evicts from the front to stay within HistorySize
func (r *Room) AppendChat(msg model.ChatMessage) []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, msg)
	if len(r.history) > HistorySize {
		r.history = append(r.history[:0], r.history[len(r.history)-HistorySize:]...)
	}
	return r.historyCopy()
}

// Members returns a copy of the current membership in join order
func (r *Room) Members() []model.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Contains(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ConnectionID == connID {
			return true
		}
	}
	return false
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) Snapshot() model.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// closeIfEmpty marks an empty room closed and reports whether it is closed
func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 {
		r.closed = true
	}
	return r.closed
}

func (r *Room) snapshot() model.RoomSnapshot {
	users := make([]model.Member, len(r.members))
	copy(users, r.members)
	return model.RoomSnapshot{
		Code:          r.code,
		Users:         users,
		HostID:        r.hostID,
		PlaybackState: r.playback,
		ChatMessages:  r.historyCopy(),
	}
}

func (r *Room) historyCopy() []model.ChatMessage {
	out := make([]model.ChatMessage, len(r.history))
	copy(out, r.history)
	return out
}
