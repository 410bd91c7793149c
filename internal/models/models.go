package models

import (
	"time"

	"gorm.io/gorm"
)

type Account struct {
	gorm.Model
	Username         string `gorm:"uniqueIndex;not null"`
	Email            string `gorm:"uniqueIndex;not null"`
	PasswordHash     string `gorm:"not null"`
	AvatarURL        string
	RefreshTokenHash string `gorm:"index"` // SHA256 of the active refresh token, empty when signed out
}

// StoryHistory keeps an account's visited/authored stories in insertion order.
type StoryHistory struct {
	ID        uint `gorm:"primaryKey"`
	AccountID uint `gorm:"uniqueIndex:idx_history_pair;not null"`
	StoryID   uint `gorm:"uniqueIndex:idx_history_pair;not null"`
	CreatedAt time.Time
}

// Story rows are hard-deleted so a removed title can be reused.
type Story struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"uniqueIndex;not null"`
	Description string `gorm:"not null"`
	Body        string `gorm:"type:text;not null"`
	Genre       string `gorm:"not null"`
	Editable    bool   `gorm:"default:false;not null"`
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoryOwner links a story to an owning account. Position preserves the
// order owners were named in.
type StoryOwner struct {
	StoryID   uint `gorm:"primaryKey"`
	AccountID uint `gorm:"primaryKey;index"`
	Position  int  `gorm:"not null"`
}

type Like struct {
	ID        uint `gorm:"primaryKey"`
	StoryID   uint `gorm:"uniqueIndex:idx_like_pair;not null"`
	AccountID uint `gorm:"uniqueIndex:idx_like_pair;index;not null"`
	CreatedAt time.Time
}

type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	StoryID   uint   `gorm:"index;not null"`
	AccountID uint   `gorm:"index;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Follow struct {
	ID         uint `gorm:"primaryKey"`
	FollowerID uint `gorm:"uniqueIndex:idx_follow_pair;not null"`
	AuthorID   uint `gorm:"uniqueIndex:idx_follow_pair;index;not null"`
	CreatedAt  time.Time
}

type Notification struct {
	ID        uint   `gorm:"primaryKey"`
	AccountID uint   `gorm:"index;not null"`
	Message   string `gorm:"type:text;not null"`
	Sentiment string
	CreatedAt time.Time `gorm:"index"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Account{},
		&StoryHistory{},
		&Story{},
		&StoryOwner{},
		&Like{},
		&Comment{},
		&Follow{},
		&Notification{},
	}
}
