// seed creates a company with its owner user and a starter set of master
// accounts, for local development and first deployments.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed
//
// Env:
//   SEED_COMPANY_NAME  (default "Demo Traders")
//   SEED_TIMEZONE      (default "Asia/Kolkata")
//   SEED_OWNER_EMAIL   (default "owner@example.com")
//   SEED_OWNER_PASSWORD (default "ChangeMe123")
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"gorm.io/gorm"
)

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var starterMasters = []models.NewMasterAccount{
	{Category: models.AccountCategoryExpense, Name: "Rent"},
	{Category: models.AccountCategoryExpense, Name: "Salaries"},
	{Category: models.AccountCategoryIncome, Name: "Sales"},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	companyName := envOr("SEED_COMPANY_NAME", "Demo Traders")
	ownerEmail := envOr("SEED_OWNER_EMAIL", "owner@example.com")
	ownerPassword := envOr("SEED_OWNER_PASSWORD", "ChangeMe123")

	seedCtx := utils.SetUserIdInContext(ctx, 0)
	seedCtx = utils.SetUserNameInContext(seedCtx, "Seed")
	seedCtx = utils.SetSkipTenantScopeInContext(seedCtx, true)

	var company models.Company
	err := db.WithContext(seedCtx).Model(&models.Company{}).Where("name = ?", companyName).First(&company).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup company: %v\n", err)
			os.Exit(1)
		}
		created, err := models.CreateCompany(seedCtx, models.NewCompany{
			Name:     companyName,
			Timezone: envOr("SEED_TIMEZONE", "Asia/Kolkata"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create company: %v\n", err)
			os.Exit(1)
		}
		company = *created
		fmt.Printf("Created company: %q (id=%s)\n", company.Name, company.ID)
	} else {
		fmt.Printf("Company exists: %q (id=%s)\n", company.Name, company.ID)
	}

	seedCtx = utils.SetCompanyIdInContext(seedCtx, company.ID)

	var owner models.User
	err = db.WithContext(seedCtx).Model(&models.User{}).Where("email = ?", ownerEmail).First(&owner).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup owner: %v\n", err)
			os.Exit(1)
		}
		created, err := models.CreateUser(seedCtx, models.NewUser{
			CompanyId: company.ID,
			Email:     ownerEmail,
			Name:      "Owner",
			Password:  ownerPassword,
			Role:      models.UserRoleOwner,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create owner: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created owner user: %q (id=%d)\n", created.Email, created.ID)
	} else {
		fmt.Printf("Owner exists: %q (id=%d)\n", owner.Email, owner.ID)
	}

	for _, input := range starterMasters {
		account, err := models.CreateMasterAccount(seedCtx, &input)
		if err != nil {
			// already seeded on rerun
			if utils.IsValidationError(err) {
				continue
			}
			fmt.Fprintf(os.Stderr, "failed to create master account %q: %v\n", input.Name, err)
			os.Exit(1)
		}
		fmt.Printf("Created master account: %s/%s (id=%d)\n", account.Category, account.Name, account.ID)
	}
}
