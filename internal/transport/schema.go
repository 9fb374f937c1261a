package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Inbound frames are schema-checked before they reach mapEvent, so a
// malformed push degrades to a logged drop instead of a half-populated
// event. Validation is per event name; names without a schema pass
// through.
type schemaRegistry struct {
	once    sync.Once
	initErr error
	byEvent map[string]*jsonschema.Schema
}

var frameSchemas schemaRegistry

func initFrameSchemas() error {
	frameSchemas.once.Do(func() {
		raw := map[string]string{
			"escalation_pending": escalationPendingSchema,
			"chat_message":       messageSchema,
			"new_message":        messageSchema,
			"chat_history":       chatHistorySchema,
			"session_closed":     sessionClosedSchema,
			"agent_joined":       agentPresenceSchema,
			"agent_left":         agentPresenceSchema,
			"ai_typing":          aiTypingSchema,
			"escalation":         escalationNoticeSchema,
		}
		frameSchemas.byEvent = make(map[string]*jsonschema.Schema, len(raw))
		for name, schema := range raw {
			compiled, err := jsonschema.CompileString("event_"+name, schema)
			if err != nil {
				frameSchemas.initErr = err
				return
			}
			frameSchemas.byEvent[name] = compiled
		}
	})
	return frameSchemas.initErr
}

func validateFrame(event string, data json.RawMessage) error {
	if err := initFrameSchemas(); err != nil {
		return err
	}
	schema := frameSchemas.byEvent[event]
	if schema == nil {
		return nil
	}

	var payload any
	if len(data) == 0 {
		payload = map[string]any{}
	} else if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("payload decode: %w", err)
	}
	return schema.Validate(payload)
}

const escalationPendingSchema = `{
  "type": "object",
  "required": ["roomId"],
  "properties": {
    "roomId": { "type": "string", "minLength": 1 },
    "sessionId": { "type": ["string", "integer"] },
    "userName": { "type": "string" },
    "status": { "type": "string" },
    "priority": { "type": "string" },
    "reason": { "type": "string" },
    "createdAt": { "type": "string" },
    "escalatedAt": { "type": "string" },
    "escalationId": { "type": ["string", "integer"] },
    "uniqueKey": { "type": "string" }
  },
  "additionalProperties": true
}`

const messageSchema = `{
  "type": "object",
  "properties": {
    "role": { "type": "string" },
    "content": { "type": "string" },
    "message": { "type": "string" },
    "roomId": { "type": "string" },
    "timestamp": { "type": "string" },
    "session_id": { "type": ["string", "integer"] },
    "confidence": { "type": "number" }
  },
  "additionalProperties": true
}`

const chatHistorySchema = `{
  "type": "object",
  "required": ["messages"],
  "properties": {
    "session_id": { "type": ["string", "integer"] },
    "messages": {
      "type": "array",
      "items": { "type": "object" }
    }
  },
  "additionalProperties": true
}`

const sessionClosedSchema = `{
  "type": "object",
  "properties": {
    "roomId": { "type": "string" },
    "room_id": { "type": "string" },
    "agent_id": { "type": "string" },
    "reason": { "type": "string" },
    "timestamp": { "type": "string" }
  },
  "additionalProperties": true
}`

const agentPresenceSchema = `{
  "type": "object",
  "properties": {
    "roomId": { "type": "string" },
    "agentId": { "type": "string" },
    "timestamp": { "type": "string" }
  },
  "additionalProperties": true
}`

const aiTypingSchema = `{
  "type": "object",
  "required": ["typing"],
  "properties": {
    "typing": { "type": "boolean" }
  },
  "additionalProperties": true
}`

const escalationNoticeSchema = `{
  "type": "object",
  "properties": {
    "session_id": { "type": ["string", "integer"] },
    "reasons": {
      "type": "array",
      "items": { "type": "string" }
    }
  },
  "additionalProperties": true
}`
