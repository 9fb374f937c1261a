package transport

// Outbound command event names.
const (
	outJoinRoom          = "join_room"
	outAgentJoinRoom     = "agent_join_room"
	outAgentLeaveRoom    = "agent_leave_room"
	outAgentMessage      = "agent_message"
	outCloseSession      = "close_session"
	outGetEscalations    = "get_escalations"
	outJoinSession       = "join_session"
	outUserMessage       = "user_message"
	messageTypeAgentChat = "agent_message"
)

// JoinRoom enters a customer room as the configured agent.
func (c *Client) JoinRoom(roomID string) error {
	return c.send(outAgentJoinRoom, map[string]any{
		"roomId":    roomID,
		"agentId":   c.opts.ActorID,
		"timestamp": c.timestamp(),
	})
}

// LeaveRoom exits a customer room.
func (c *Client) LeaveRoom(roomID string) error {
	return c.send(outAgentLeaveRoom, map[string]any{
		"roomId":    roomID,
		"agentId":   c.opts.ActorID,
		"timestamp": c.timestamp(),
	})
}

// SendMessage delivers an agent reply into a room.
func (c *Client) SendMessage(roomID, message string) error {
	return c.send(outAgentMessage, map[string]any{
		"roomId":    roomID,
		"message":   message,
		"agentId":   c.opts.ActorID,
		"timestamp": c.timestamp(),
		"type":      messageTypeAgentChat,
	})
}

// CloseSession ends a room's session with a reason.
func (c *Client) CloseSession(roomID, reason string) error {
	if reason == "" {
		reason = "Agent closed session"
	}
	return c.send(outCloseSession, map[string]any{
		"roomId":    roomID,
		"agentId":   c.opts.ActorID,
		"reason":    reason,
		"timestamp": c.timestamp(),
	})
}

// RequestEscalations asks the backend to replay pending escalations as
// escalation_pending pushes.
func (c *Client) RequestEscalations() error {
	return c.send(outGetEscalations, nil)
}

// JoinSession enters a chat session as a user-profile client.
func (c *Client) JoinSession(sessionID string) error {
	return c.send(outJoinSession, map[string]any{
		"sessionId": sessionID,
	})
}

// SendUserMessage delivers a customer message into the session.
func (c *Client) SendUserMessage(sessionID, message, messageType string) error {
	if messageType == "" {
		messageType = "user"
	}
	return c.send(outUserMessage, map[string]any{
		"sessionId":   sessionID,
		"message":     message,
		"messageType": messageType,
		"timestamp":   c.timestamp(),
	})
}
