package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sale links a buyer to the property they bought.
type Sale struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_sales_buyer_id" json:"buyer_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index:idx_sales_property_id" json:"property_id"`
	CreatedAt  time.Time `gorm:"index:idx_sales_created_at" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Buyer    *User     `gorm:"foreignKey:BuyerID;constraint:OnDelete:RESTRICT" json:"buyer,omitempty"`
	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:RESTRICT" json:"property,omitempty"`
}

// TableName specifies the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// BeforeCreate assigns a random id when none was set.
func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
