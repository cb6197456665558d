package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// User is the account record the gateway authenticates against.
type User struct {
	gorm.Model
	Username   string     `gorm:"uniqueIndex;not null" json:"username"`
	Email      string     `gorm:"uniqueIndex;not null" json:"email"`
	Password   string     `json:"-"`
	Avatar     string     `json:"avatar,omitempty"`
	LastOnline *time.Time `gorm:"index" json:"lastOnline,omitempty"`

	Conversations []*Conversation `gorm:"many2many:conversation_members" json:"conversations,omitempty"`
}

/** -------------------- DTOs -------------------- */

// OnlineUsersResponse is the presence snapshot served over HTTP.
type OnlineUsersResponse struct {
	Users []uint `json:"users"`
	Count int    `json:"count"`
}
