package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Frame types exchanged after the handshake
const (
	TypePlaybackUpdate = "playback_update"
	TypeChatMessage    = "chat_message"
	TypeUserAction     = "user_action"
	TypeUserJoined     = "user_joined"
	TypeUserLeft       = "user_left"
	TypeRoomState      = "room_state"
	TypeRoomClosed     = "room_closed"
)

type (
	// Member is a connection's participation record within one room
	Member struct {
		UserID       string    `json:"id"`
		Username     string    `json:"username"`
		ConnectionID string    `json:"client_id"`
		JoinedAt     time.Time `json:"joined_at"`
		IsHost       bool      `json:"is_host"`
	}

	ChatMessage struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}

	RoomSnapshot struct {
		Code          string        `json:"code"`
		Users         []Member      `json:"users"`
		HostID        string        `json:"host_id"`
		PlaybackState PlaybackState `json:"playback_state"`
		ChatMessages  []ChatMessage `json:"chat_messages"`
	}
)

// PlaybackState is the client-defined playback object. It is stored and
// forwarded verbatim and only ever replaced as a whole.
type PlaybackState json.RawMessage

// DefaultPlaybackState is the state of a room nobody has updated yet
var DefaultPlaybackState = PlaybackState(`{"playing":false,"current_time":0}`)

var ErrPlaybackState = errors.New("playback_state is not a JSON object")

// NewPlaybackState accepts any JSON object. A missing or null value yields DefaultPlaybackState.
func NewPlaybackState(raw json.RawMessage) (PlaybackState, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DefaultPlaybackState, nil
	}
	if raw[0] != '{' || !json.Valid(raw) {
		return nil, ErrPlaybackState
	}
	s := make(PlaybackState, len(raw))
	copy(s, raw)
	return s, nil
}

func (s PlaybackState) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return DefaultPlaybackState, nil
	}
	return s, nil
}

func (s *PlaybackState) UnmarshalJSON(b []byte) error {
	*s = append((*s)[:0], b...)
	return nil
}

// Handshake is the first frame a client sends
type Handshake struct {
	RoomCode string `json:"room_code"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Inbound is the union of every steady-state client frame
type Inbound struct {
	Type          string          `json:"type"`
	PlaybackState json.RawMessage `json:"playback_state,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Username      string          `json:"username,omitempty"`
	Message       string          `json:"message,omitempty"`
	Action        string          `json:"action,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Outbound frames
type (
	UserJoined struct {
		Type string `json:"type"`
		User Member `json:"user"`
	}

	RoomState struct {
		Type   string       `json:"type"`
		Room   RoomSnapshot `json:"room"`
		YourID string       `json:"your_id"`
	}

	UserLeft struct {
		Type     string `json:"type"`
		ClientID string `json:"client_id"`
	}

	PlaybackUpdate struct {
		Type          string        `json:"type"`
		PlaybackState PlaybackState `json:"playback_state"`
	}

	Chat struct {
		Type    string      `json:"type"`
		Message ChatMessage `json:"message"`
	}

	UserAction struct {
		Type   string          `json:"type"`
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
		UserID string          `json:"user_id"`
	}

	RoomClosed struct {
		Type string `json:"type"`
		Code string `json:"code"`
	}
)

func (h *Handshake) Valid() bool {
	return h.RoomCode != "" && h.UserID != "" && h.Username != ""
}

func NewUserJoined(m Member) *UserJoined {
	return &UserJoined{Type: TypeUserJoined, User: m}
}

func NewRoomState(s RoomSnapshot, yourID string) *RoomState {
	return &RoomState{Type: TypeRoomState, Room: s, YourID: yourID}
}

func NewUserLeft(connectionID string) *UserLeft {
	return &UserLeft{Type: TypeUserLeft, ClientID: connectionID}
}

func NewPlaybackUpdate(s PlaybackState) *PlaybackUpdate {
	return &PlaybackUpdate{Type: TypePlaybackUpdate, PlaybackState: s}
}

func NewChat(m ChatMessage) *Chat {
	return &Chat{Type: TypeChatMessage, Message: m}
}

func NewUserAction(action string, data json.RawMessage, userID string) *UserAction {
	return &UserAction{Type: TypeUserAction, Action: action, Data: data, UserID: userID}
}

func NewRoomClosed(code string) *RoomClosed {
	return &RoomClosed{Type: TypeRoomClosed, Code: code}
}
