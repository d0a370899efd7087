package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mb-mentor/internal/archive"
	"mb-mentor/internal/config"
	"mb-mentor/internal/user"
)

var DB *gorm.DB

func Init(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&user.User{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&archive.Conversation{}); err != nil {
		return err
	}

	DB = db
	log.Printf("Database connected and migrated")
	return nil
}
