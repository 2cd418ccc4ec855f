package main

import (
	"referral_system/internal/config" // Custom import path (Config)
	"referral_system/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Create the users table and indexes
}
