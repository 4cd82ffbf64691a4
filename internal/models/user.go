package models

import "time"

// UserStatus: only active users are offered as assignees and mention
// candidates.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Status       UserStatus `json:"status"`
	RoleID       int        `json:"role_id"`
	PasswordHash string     `json:"-"` // не отдаём наружу

	TelegramChatID int64 `json:"-"`

	// refresh-хранение в БД
	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
}

// DisplayName is what mentions and audit fields record for a user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
