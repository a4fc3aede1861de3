package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus represents the activation state of an account.
type UserStatus string

const (
	// UserStatusInactive is the state of every newly registered account.
	UserStatusInactive UserStatus = "inactive"
	// UserStatusActive marks an account that may log in and transact.
	UserStatusActive UserStatus = "active"
)

// User is an account. Users are never hard-deleted; deactivation flips Status.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  *string    `gorm:"size:255;uniqueIndex:idx_users_username" json:"username,omitempty"`
	FirstName string     `gorm:"size:255" json:"first_name"`
	LastName  string     `gorm:"size:255" json:"last_name"`
	Email     string     `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Status    UserStatus `gorm:"type:varchar(20);not null;default:'inactive';index:idx_users_status" json:"status"`
	CreatedAt time.Time  `gorm:"index:idx_users_created_at" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a random id when none was set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the account is activated.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// UsernameValue returns the username or "" when unset.
func (u *User) UsernameValue() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}

// UserWithActivityCount is a listing row: a user plus the number of active
// activity records attributed to them.
type UserWithActivityCount struct {
	User
	TotalActivities int64 `gorm:"column:total_activities" json:"total_activities"`
}
