package relay

import (
	"encoding/json"
	"errors"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"partywatch.live/model"
	"partywatch.live/pkg/registry"
	"partywatch.live/pkg/utils"
	"partywatch.live/room"
)

// receive handles frames from c in arrival order until the transport goes away
func (r *Relay) receive(rm *room.Room, self model.Member, c *registry.Conn) {
	for {
		b, err := c.ReadText(r.config.IdleTimeout())
		if err != nil {
			if errors.Is(err, registry.ErrFrameTooLarge) {
				log.Warnf("connection %s: %v", c.ID(), err)
				continue
			}
			log.Debugf("connection %s read: %v", c.ID(), err)
			return
		}
		if !rm.Contains(c.ID()) {
			return
		}
		r.dispatch(rm, self, b)
	}
}

// dispatch applies one inbound frame to the room and fans it out
func (r *Relay) dispatch(rm *room.Room, self model.Member, b []byte) {
	var in model.Inbound
	if err := json.Unmarshal(b, &in); err != nil {
		log.Warnf("malformed frame from %s in room %s: %v", self.ConnectionID, rm.Code(), err)
		return
	}

	switch in.Type {
	case model.TypePlaybackUpdate:
		state, err := model.NewPlaybackState(in.PlaybackState)
		if err != nil {
			log.Warnf("playback update from %s in room %s dropped: %v", self.ConnectionID, rm.Code(), err)
			return
		}
		rm.UpdatePlayback(state)
		r.broadcast(rm, model.NewPlaybackUpdate(state), self.ConnectionID)

	case model.TypeChatMessage:
		if r.config.MaxChatLength > 0 && !utils.IsLengthValid(in.Message, 0, r.config.MaxChatLength) {
			log.Warnf("chat message from %s in room %s exceeds %d characters, dropped", self.ConnectionID, rm.Code(), r.config.MaxChatLength)
			return
		}
		msg := model.ChatMessage{
			ID:        uuid.NewString(),
			UserID:    utils.FirstNonBlank(in.UserID, self.UserID),
			Username:  utils.FirstNonBlank(in.Username, self.Username),
			Message:   in.Message,
			Timestamp: r.now(),
		}
		rm.AppendChat(msg)
		r.broadcast(rm, model.NewChat(msg), "")

	case model.TypeUserAction:
		userID := utils.FirstNonBlank(in.UserID, self.UserID)
		r.broadcast(rm, model.NewUserAction(in.Action, in.Data, userID), self.ConnectionID)

	default:
		log.Debugf("unknown frame type %q from %s ignored", in.Type, self.ConnectionID)
	}
}

// disconnect releases connID and removes it from rm. The remaining members
// are told about it, or the room is torn down if nobody is left.
// Repeated calls for the same connection are no-ops.
func (r *Relay) disconnect(rm *room.Room, connID string) {
	r.conns.Close(connID)

	m, ok, removed := r.rooms.Leave(rm, connID)
	if !ok {
		return
	}
	log.Infof("user %s (%s) left room %s", m.Username, m.UserID, rm.Code())

	if removed {
		r.publish(rm.Code(), model.NewRoomClosed(rm.Code()))
		return
	}
	r.broadcast(rm, model.NewUserLeft(connID), "")
}
