package domain

import "time"

// User represents an admin-panel account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	NickName     *string
	Email        *string
	Phone        *string
	HeadPic      *string
	IsSuperAdmin bool
	IsFrozen     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account may authenticate.
func (u User) CanLogin() bool {
	return !u.IsFrozen
}
