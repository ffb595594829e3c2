package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is the current payload schema version.
const MessageVersion = 1

// Message asks a worker to process an advisor report.
type Message struct {
	ReportID   string `json:"reportId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a message for reportID stamped with the current time.
func NewMessage(reportID, requestID string) Message {
	return Message{
		ReportID:   reportID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a queue payload. Payloads from a newer producer are
// rejected; a missing version is read as version 1.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
