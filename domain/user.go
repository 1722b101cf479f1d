package domain

import "time"

// User owns projects and tasks. The ID is the OAuth provider's subject claim;
// identity and sessions themselves are the provider's concern, the record
// here only carries profile fields.
type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex" json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
