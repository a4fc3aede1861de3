package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyStatus represents whether a listing can still be bought.
type PropertyStatus string

const (
	// PropertyStatusAvailable marks a listing open for sale.
	PropertyStatusAvailable PropertyStatus = "available"
	// PropertyStatusSold marks a listing bound to a sale or taken off the market.
	PropertyStatusSold PropertyStatus = "sold"
)

// Property is a listing owned by a user.
type Property struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Address    string         `gorm:"size:255;not null" json:"address"`
	Price      float64        `gorm:"not null;default:0" json:"price"`
	LivingArea float64        `gorm:"not null;default:0" json:"living_area"`
	OwnerID    *uuid.UUID     `gorm:"type:uuid;index:idx_properties_owner_id" json:"owner_id,omitempty"`
	Status     PropertyStatus `gorm:"type:varchar(20);not null;default:'available';index:idx_properties_status" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"owner,omitempty"`
}

// TableName specifies the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// BeforeCreate assigns a random id when none was set.
func (p *Property) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsAvailable reports whether the property can be sold.
func (p *Property) IsAvailable() bool {
	return p != nil && p.Status == PropertyStatusAvailable
}

// OwnedBy reports whether userID is the current owner.
func (p *Property) OwnedBy(userID uuid.UUID) bool {
	return p != nil && p.OwnerID != nil && *p.OwnerID == userID
}

// OwnerStats summarizes the listings of one owner.
type OwnerStats struct {
	OwnerID           uuid.UUID `json:"owner_id"`
	Listings          int64     `json:"listings"`
	AverageLivingArea float64   `json:"average_living_area"`
}
