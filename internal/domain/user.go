package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string    `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName    string    `gorm:"column:display_name" json:"display_name"`
	TelegramChatID int64     `gorm:"column:telegram_chat_id;index" json:"telegram_chat_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }
