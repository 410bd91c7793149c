// Package domain holds the plain data types passed between repositories,
// services and handlers. Entities reference each other by id only.
package domain

import (
	"strings"
	"time"
)

// Account is the full account row. PasswordHash and RefreshTokenHash never
// leave the service layer; handlers respond with Profile().
type Account struct {
	ID               uint
	Username         string
	Email            string
	PasswordHash     string
	AvatarURL        string
	RefreshTokenHash string
	CreatedAt        time.Time
}

// AccountProfile is the sanitized account returned to clients.
type AccountProfile struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar,omitempty"`
}

func (a Account) Profile() AccountProfile {
	return AccountProfile{ID: a.ID, Username: a.Username, Email: a.Email, AvatarURL: a.AvatarURL}
}

// AccountSummary is the projection used in liker/owner/search lists.
type AccountSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
}

// NormalizeHandle lowercases and trims usernames and emails.
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Story struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"story,omitempty"`
	Genre       string    `json:"genre"`
	Owners      []uint    `json:"owners"`
	Editable    bool      `json:"isEditable"`
	AvatarURL   string    `json:"avatar"`
	CommentIDs  []uint    `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasOwner reports whether accountID is in the owner set.
func (s Story) HasOwner(accountID uint) bool {
	for _, id := range s.Owners {
		if id == accountID {
			return true
		}
	}
	return false
}

// StorySummary is the projection used in histories.
type StorySummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type NewStory struct {
	Title       string
	Description string
	Body        string
	Genre       string
	Owners      []uint
	Editable    bool
	AvatarURL   string
}

// StoryField names the single column an update touches.
type StoryField string

const (
	FieldTitle       StoryField = "title"
	FieldDescription StoryField = "description"
	FieldBody        StoryField = "body"
	FieldThumbnail   StoryField = "thumbnail"
)

func (f StoryField) Valid() bool {
	switch f {
	case FieldTitle, FieldDescription, FieldBody, FieldThumbnail:
		return true
	}
	return false
}

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByGenre     SortField = "genre"
	SortByCreatedAt SortField = "created_at"
)

// StoryQuery drives story listing. An empty Search matches every title.
type StoryQuery struct {
	Search      string
	SortBy      SortField
	Descending  bool
	OwnerID     uint // zero means no owner filter
	Limit       int
	IncludeBody bool
}

type Comment struct {
	ID        uint      `json:"id"`
	StoryID   uint      `json:"storyId"`
	AuthorID  uint      `json:"authorId"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"comment"`
	StoryName string    `json:"storyTitle,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notification struct {
	ID          uint      `json:"id"`
	RecipientID uint      `json:"userId"`
	Message     string    `json:"message"`
	Sentiment   string    `json:"sentiment"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FollowCounts is the aggregate shown on author profiles.
type FollowCounts struct {
	Followers int64
	Following int64
}
