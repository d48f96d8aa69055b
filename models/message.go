package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageMetadata carries optional generation details alongside a message.
type MessageMetadata struct {
	Tokens      *int             `json:"tokens,omitempty"`
	Latency     *float64         `json:"latency,omitempty"` // seconds
	Cost        *float64         `json:"cost,omitempty"`    // USD
	Model       string           `json:"model,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	ToolCalls   []map[string]any `json:"tool_calls,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MessageMetadata) Scan(src any) error {
	if src == nil {
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for MessageMetadata: %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, m)
}

// Message is one side of a turn. Messages are ordered within a conversation
// by Timestamp; Go's nanosecond clock keeps sequential appends distinct.
type Message struct {
	ID             string           `gorm:"primaryKey;size:40" json:"id"`
	ConversationID string           `gorm:"size:40;not null;index:idx_messages_conv_ts,priority:1" json:"conversation_id"`
	Role           string           `gorm:"size:20;not null" json:"role"`
	Content        string           `gorm:"type:text;not null" json:"content"`
	Metadata       *MessageMetadata `gorm:"type:text" json:"metadata,omitempty"`
	Timestamp      time.Time        `gorm:"not null;index:idx_messages_conv_ts,priority:2" json:"timestamp"`
}
