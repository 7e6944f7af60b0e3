package main

import (
	"encoding/json"

	"github.com/ssau-fiit/cloudocs-api/workspace"
)

const (
	msgTypeInit  = "init"
	msgTypeError = "error"
)

// Envelope carries one wire-encoded operation between server nodes.
// Origin names the node that accepted it, Sender the socket it came from.
type Envelope struct {
	Origin  string          `json:"origin"`
	Sender  string          `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// InitMessage is the first frame a socket receives.
type InitMessage struct {
	Type      string                        `json:"type"`
	ClientID  uint64                        `json:"clientId"`
	Workspace workspace.SerializedWorkspace `json:"workspace"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
