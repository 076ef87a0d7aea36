package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/google/uuid"
)

type Company struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	Timezone  string    `gorm:"size:50" json:"timezone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

func (company *Company) StoreRedis() error {
	return config.SetRedisObject("Company:"+fmt.Sprint(company.ID), company, 0)
}

func (company *Company) RemoveRedis() error {
	return config.RemoveRedisKey("Company:" + fmt.Sprint(company.ID))
}

// GetCompany reads a company, redis first then db.
func GetCompany(ctx context.Context, companyId string) (*Company, error) {
	var company Company
	exists, err := config.GetRedisObject("Company:"+companyId, &company)
	if err != nil {
		return nil, err
	}
	if exists {
		return &company, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", companyId).First(&company).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := company.StoreRedis(); err != nil {
		return nil, err
	}
	return &company, nil
}

// CompanyTimezone resolves a company's timezone, defaulting when unset.
func CompanyTimezone(ctx context.Context, companyId string) string {
	company, err := GetCompany(ctx, companyId)
	if err != nil || company.Timezone == "" {
		return "Asia/Kolkata"
	}
	return company.Timezone
}

func CreateCompany(ctx context.Context, input NewCompany) (*Company, error) {
	if input.Name == "" {
		return nil, errors.New("company name is required")
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, utils.NewValidationError("unknown timezone %s", input.Timezone)
		}
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, utils.NewValidationError("invalid phone number %s", input.Phone)
		}
	}

	company := Company{
		ID:       uuid.New().String(),
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		Timezone: input.Timezone,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}
