package migration

import (
	"SpendSnap-Backend/entities"
	"fmt"
	"log"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Category{}); err != nil {
		log.Fatalf("Error migrating category database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.ExtractionJob{}); err != nil {
		log.Fatalf("Error migrating extraction job database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.FieldCorrection{}); err != nil {
		log.Fatalf("Error migrating field correction database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.ExpenseRecord{}, &entities.ExpenseItem{}); err != nil {
		log.Fatalf("Error migrating expense database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Budget{}, &entities.BudgetAlert{}); err != nil {
		log.Fatalf("Error migrating budget database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
