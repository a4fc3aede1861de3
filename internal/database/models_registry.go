package database

import "estate/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models, parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Property{},
		&models.Sale{},
		&models.Activity{},
	}
}
