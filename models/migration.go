package models

import (
	"log"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &User{},
		&MasterAccount{},
		&Transaction{},
		&Payable{}, &Receivable{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
