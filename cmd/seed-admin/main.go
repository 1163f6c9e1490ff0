// seed-admin creates or updates the platform admin user. Admin accounts are
// never self-registered (the register endpoint refuses role=admin); this tool
// is the only way to mint one.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	ADMIN_USERNAME=... ADMIN_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

func main() {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "greenloopAdmin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_PASSWORD is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Uuid:     uuid.New(),
			Name:     "GreenLoop Admin",
			Username: username,
			Password: string(hashed),
			Role:     models.RoleAdmin,
			IsActive: true,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q\n", username)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Updates(map[string]any{
		"password":  string(hashed),
		"role":      models.RoleAdmin,
		"is_active": true,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	utils.RemoveRedis[models.User](existing.ID)
	fmt.Printf("Updated admin user: username=%q\n", username)
}
