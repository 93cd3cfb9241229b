package domain

import "time"

// User is the account record behind an Identity.
type User struct {
	ID            string
	Username      string
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity projects the user onto the token payload.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.Username}
}

// FullName joins first and last name for mail greetings.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Blocked reports an account that verified its email but was deactivated.
func (u *User) Blocked() bool {
	return !u.IsActive && u.EmailVerified
}

// Profile is the public view of a user, also used as event data.
type Profile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"emailAddress"`
}

// Profile returns the public projection of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmailAddress: u.Email,
	}
}
