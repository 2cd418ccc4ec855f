package db

import (
	"referral_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// MySQLTableOptions gives every column a binary collation so wallet addresses, usernames
// and referral codes match exactly, case included
const MySQLTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

// Open connects to the MySQL database
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// withTableOptions applies dialect specific table options to migrations
func withTableOptions(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "mysql" {
		return db.Set("gorm:table_options", MySQLTableOptions) // Case sensitive lookups
	}
	return db // SQLite compares case sensitively already
}

// AutoMigrate creates or updates the users table and its unique indexes
func AutoMigrate(db *gorm.DB) error {
	return withTableOptions(db).AutoMigrate(&domain.User{})
}

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := Open(dsn) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing columns and indexes
	if err := AutoMigrate(db); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}
