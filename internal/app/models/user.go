package models

import "time"

// User is the session principal as exposed to handlers.
type User struct {
	ID        string
	Email     string
	Name      string
	Gender    string
	Location  string
	Website   string
	Picture   string
	CreatedAt time.Time
}

// UserAuth carries the password hash alongside the profile; it never leaves
// the auth domain.
type UserAuth struct {
	User
	PasswordHash string
}

// ProviderIdentity links a user to an external identity provider account.
type ProviderIdentity struct {
	UserID         string
	Provider       string
	ProviderUserID string
}

// ProviderToken is a stored OAuth access token for one provider.
type ProviderToken struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Expired reports whether the token carries an expiry in the past. Tokens
// without expiry never expire here.
func (t ProviderToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// Flash is a one-shot message stored in the session and shown on the next
// rendered page.
type Flash struct {
	Type    string
	Message string
}

const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)
