package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User models an account. Only its ID is referenced by the ledger.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Phone          string    `json:"phone"`
	Organization   string    `json:"organization"`
	Address        string    `json:"address,omitempty"`
	Role           string    `json:"role"`
	SocialProvider string    `json:"social_provider,omitempty"`
	SocialSubject  string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may manage courses and accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSocial reports whether the account was created through a social login.
func (u *User) IsSocial() bool {
	return u.SocialSubject != ""
}

// SocialProfile is what an identity provider tells us about a user.
type SocialProfile struct {
	Provider string
	Subject  string
	Nickname string
	Phone    string
}
