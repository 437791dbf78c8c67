// Package wsserver connects one editor client to a workspace session over a
// WebSocket.
//
// # Frame protocol
//
// Client to server: one text frame per command, the JSON form of
// workspace.Command:
//
//	{"name":"open-file","args":{"fileId":"..."}}
//
// Server to client: one text frame per event:
//
//	{"event":"workspace:panes-changed","payload":{...}}
//
// A command that fails (or cannot be decoded) is answered with an
// EventError frame; successful commands are answered only by the events
// their state changes emit.
package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"

	"codeworkspace/internal/workspace"
)

// Events emitted by the hub itself.
const (
	EventError    = "workspace:error"
	EventLog      = "workspace:log"
	EventSnapshot = "workspace:snapshot"
)

// EventFrame is the server-to-client envelope.
type EventFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// EncodeEvent builds the text frame for one event.
func EncodeEvent(name string, payload any) ([]byte, error) {
	if name == "" {
		return nil, errors.New("wsserver: encode event: name must not be empty")
	}
	frame, err := json.Marshal(EventFrame{Event: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("wsserver: encode event %s: %w", name, err)
	}
	return frame, nil
}

// DecodeCommand parses a client text frame.
func DecodeCommand(frame []byte) (workspace.Command, error) {
	var cmd workspace.Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return workspace.Command{}, fmt.Errorf("wsserver: decode command: %w", err)
	}
	if cmd.Name == "" {
		return workspace.Command{}, errors.New("wsserver: decode command: missing name")
	}
	return cmd, nil
}
