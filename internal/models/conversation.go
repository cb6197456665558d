package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation types
const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

type Conversation struct {
	gorm.Model
	Name string `json:"name"`
	Type string `gorm:"not null;type:varchar(20);default:'direct'" json:"type"`

	Members []*User `gorm:"many2many:conversation_members" json:"members,omitempty"`
}

// ConversationMember is the join row between users and conversations.
type ConversationMember struct {
	ConversationID uint      `gorm:"primaryKey" json:"conversationId"`
	UserID         uint      `gorm:"primaryKey;index" json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}
