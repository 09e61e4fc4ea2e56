package database

import (
	"github.com/escuelalink/parent-gateway/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Session{},
	)
}
