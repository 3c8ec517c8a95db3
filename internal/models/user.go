package models

import "time"

// User is a registered account of the CO2 monitor app.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName string `json:"fullName" gorm:"type:varchar(255);not null"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password string `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	// Alerts lists the ids of the user's alerts in the order they were attached.
	// Relational stores keep them in user_alerts, see UserAlert.
	Alerts    []string  `json:"alerts" gorm:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicUser is the subset of User returned by the auth endpoints.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// Public strips everything but the identifying fields.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
