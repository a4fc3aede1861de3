package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityStatus is the lifecycle flag of an audit record.
type ActivityStatus string

const (
	ActivityStatusInactive ActivityStatus = "inactive"
	ActivityStatusActive   ActivityStatus = "active"
)

// MaxActivityPathLength bounds Activity.Path.
const MaxActivityPathLength = 255

// Activity is an audit record of one API operation.
type Activity struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Duration  time.Duration  `gorm:"not null" json:"duration"`
	Path      string         `gorm:"size:255;not null" json:"path"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_activities_user_id" json:"user_id"`
	Status    ActivityStatus `gorm:"type:varchar(20);not null;default:'active';index:idx_activities_status" json:"status"`
	CreatedAt time.Time      `gorm:"index:idx_activities_created_at" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for GORM
func (Activity) TableName() string {
	return "activities"
}

// BeforeCreate assigns a random id when none was set.
func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
