package realtime

import "teamsync/internal/app/workspace"

// publishSnapshot sends the full snapshot to every session. Sessions whose queue is full are
// dropped after the fan-out, which may publish a follow-up snapshot for their user.
func (h *Hub) publishSnapshot(snap workspace.Snapshot) {
	frame, err := EncodeEnvelope(EventWorkspaceUpdate, snap)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode snapshot.")
		return
	}

	h.fanOut(frame, nil)
}

// publishTyping forwards a typing signal to every session except origin.
func (h *Hub) publishTyping(userID string, isTyping bool, origin *Client) {
	frame, err := EncodeEnvelope(EventUserTyping, TypingPayload{UserID: userID, IsTyping: isTyping})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode typing signal.")
		return
	}

	h.fanOut(frame, origin)
}

func (h *Hub) fanOut(frame []byte, skip *Client) {
	var slow []*Client

	for c := range h.clients {
		if c == skip {
			continue
		}
		if !trySend(c, frame) {
			c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping client.")
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.drop(c)
	}
}

func trySend(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}
