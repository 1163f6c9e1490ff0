package models

import (
	"log"

	"github.com/greenloop-dev/greenloop_backend/config"
)

// MigrateTable registers every schema explicitly. Called from main() after
// the database is connected; nothing migrates as an import side effect.
func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&WasteReport{}, &CollectionJob{}, &MarketplaceItem{},
		&CleanupEvent{}, &EventParticipation{},
		&WorkerTask{},
		&CreditTransaction{},
		&History{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
