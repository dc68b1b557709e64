package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"dormtrack/internal/models"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, _ := gdb.DB()
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	return gdb
}

// AutoMigrate creates or updates the full schema.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.TokenBlocklist{},
		&models.Building{},
		&models.Room{},
		&models.Bed{},
		&models.Student{},
		&models.InspectionItem{},
		&models.InspectionRecord{},
		&models.InspectionDetail{},
		&models.Photo{},
		&models.PatrolLocation{},
		&models.LightsOutPatrol{},
		&models.LightsOutCheck{},
		&models.Announcement{},
		&models.AuditLog{},
	)
}
