package bootstrap

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/model"
)

// SeedAdminUser makes sure a fresh database has one admin account to
// bootstrap invitations from. It is a no-op as soon as any user exists.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin-change-me"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		FirstName:    "Admin",
		LastName:     "User",
		IsAdmin:      true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	log.Println("admin user seeded (username: admin)")
	return nil
}

// SeedDefaultGroups creates the general-access group new articles commonly
// land in. Existing groups are left alone.
func SeedDefaultGroups(db *gorm.DB) error {
	defaults := []model.Group{
		{Name: "general", Description: "Articles available to everyone"},
	}

	for _, group := range defaults {
		var count int64
		if err := db.Model(&model.Group{}).
			Where("name = ?", group.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&group).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
