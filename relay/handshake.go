package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/labstack/gommon/log"
	"partywatch.live/model"
	"partywatch.live/pkg/registry"
	"partywatch.live/room"
)

const statusPolicyViolation = ws.StatusPolicyViolation

// ErrHandshake is returned when the first frame does not identify room, user and name
var ErrHandshake = errors.New("invalid handshake")

func (r *Relay) handshake(c *registry.Conn) (*model.Handshake, error) {
	b, err := c.ReadText(r.config.HandshakeTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	var hs model.Handshake
	if err = json.Unmarshal(b, &hs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if !hs.Valid() {
		return nil, fmt.Errorf("%w: room_code, user_id and username are required", ErrHandshake)
	}
	return &hs, nil
}

// join makes c a member of the handshake's room, announces it to the others
// and sends the room state to c alone
func (r *Relay) join(c *registry.Conn, hs *model.Handshake) (*room.Room, model.Member) {
	rm, member, snapshot := r.rooms.Join(hs.RoomCode, hs.UserID, hs.Username, c.ID())
	log.Infof("user %s (%s) joined room %s as %s, host: %t", hs.Username, hs.UserID, rm.Code(), c.ID(), member.IsHost)

	r.broadcast(rm, model.NewUserJoined(member), c.ID())
	r.sendTo(rm, c.ID(), model.NewRoomState(snapshot, hs.UserID))
	return rm, member
}
