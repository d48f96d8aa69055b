package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// Conversation is a titled, user-owned thread of chat messages, optionally
// bound to an expert persona and a model.
type Conversation struct {
	ID           string     `gorm:"primaryKey;size:40" json:"id"`
	UserID       string     `gorm:"size:40;not null;index:idx_conversations_user_updated,priority:1" json:"user_id"`
	Title        string     `gorm:"size:200" json:"title"`
	Model        string     `gorm:"size:100" json:"model,omitempty"`
	ExpertID     string     `gorm:"size:40;index" json:"expert_id,omitempty"`
	ExpertName   string     `gorm:"size:100" json:"expert_name,omitempty"`
	MessageCount int        `gorm:"not null;default:0" json:"message_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `gorm:"index:idx_conversations_user_updated,priority:2,sort:desc" json:"updated_at"`
	IsArchived   bool       `gorm:"not null;default:false" json:"is_archived"`
	IsFavorite   bool       `gorm:"not null;default:false" json:"is_favorite"`
	Tags         StringList `gorm:"type:text" json:"tags"`
}

const PlaceholderTitle = "New conversation"

// NewConversationID returns ids of the form "conv-3f2a9c1b44de".
func NewConversationID() string {
	return "conv-" + shortHex()
}

// NewMessageID returns ids of the form "msg-3f2a9c1b44de".
func NewMessageID() string {
	return "msg-" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
