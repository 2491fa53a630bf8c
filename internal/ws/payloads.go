package ws

import (
	"encoding/json"
	"time"
)

// client → server
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// server → client
type ServerMessage struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Change  string          `json:"change,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	At      *time.Time      `json:"at,omitempty"`
	Topics  []string        `json:"topics,omitempty"`
	Message string          `json:"message,omitempty"`
}
