package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
)

// MasterAccount is one directory entry per bank, party, expense or income
// head. Cash books are not stored here (see CashAccountNames).
type MasterAccount struct {
	ID        int             `gorm:"primary_key" json:"id"`
	CompanyId string          `gorm:"index;not null" json:"company_id"`
	Category  AccountCategory `gorm:"index;type:enum('bank', 'party', 'expense', 'income');not null" json:"category" binding:"required"`
	Name      string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone     string          `gorm:"size:20" json:"phone"`
	Notes     string          `gorm:"type:text" json:"notes"`
	IsActive  *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMasterAccount struct {
	Category AccountCategory `json:"category" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Phone    string          `json:"phone"`
	Notes    string          `json:"notes"`
}

func (m MasterAccount) GetCompanyId() string {
	return m.CompanyId
}

/*
caches:

	MasterAccount:$id
	MasterAccountList:$companyId:$category
*/

func masterListCacheKey(companyId string, category AccountCategory) string {
	return fmt.Sprintf("MasterAccountList:%s:%s", companyId, category)
}

func (m MasterAccount) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[MasterAccount](m.ID)
}

func (m MasterAccount) RemoveAllRedis() error {
	return config.RemoveRedisKey(masterListCacheKey(m.CompanyId, m.Category))
}

// validate input for both create & update. (id = 0 for create)
func (input *NewMasterAccount) validate(ctx context.Context, companyId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[MasterAccount](ctx, companyId, id); err != nil {
			return err
		}
	}
	if input.Name == "" {
		return utils.NewValidationError("name is required")
	}
	if _, err := ParseAccountCategory(string(input.Category)); err != nil {
		return utils.NewValidationError("invalid category %s", input.Category)
	}
	if input.Category == AccountCategoryCash || input.Category == AccountCategoryContra {
		return utils.NewValidationError("category %s has no master records", input.Category)
	}
	// bank names must not collide with the fixed cash books
	if input.Category == AccountCategoryBank && IsCashAccountName(input.Name) {
		return utils.NewValidationError("%s is a reserved cash account name", input.Name)
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("invalid phone number %s", input.Phone)
		}
	}
	// name unique within the category
	count, err := utils.ResourceCountWhere[MasterAccount](ctx, companyId,
		"category = ? AND name = ? AND NOT id = ?", input.Category, input.Name, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("duplicate %s name %s", input.Category, input.Name)
	}
	return nil
}

func CreateMasterAccount(ctx context.Context, input *NewMasterAccount) (*MasterAccount, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	masterAccount := MasterAccount{
		CompanyId: companyId,
		Category:  input.Category,
		Name:      input.Name,
		Phone:     input.Phone,
		Notes:     input.Notes,
		IsActive:  utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&masterAccount).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(masterAccount); err != nil {
		return nil, err
	}

	return &masterAccount, nil
}

func UpdateMasterAccount(ctx context.Context, id int, input *NewMasterAccount) (*MasterAccount, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	masterAccount, err := utils.FetchModel[MasterAccount](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	// category is fixed once created: transactions already reference it
	if masterAccount.Category != input.Category {
		return nil, utils.NewValidationError("cannot change category of %s", masterAccount.Name)
	}

	oldName := masterAccount.Name

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&masterAccount).Updates(map[string]interface{}{
		"Name":  input.Name,
		"Phone": input.Phone,
		"Notes": input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	// keep stored transaction snapshots consistent with the renamed account
	if oldName != input.Name {
		if err := renameAccountOnTransactions(ctx, companyId, masterAccount.Category, id, oldName, input.Name); err != nil {
			return nil, err
		}
	}

	if err := RemoveRedisBoth(*masterAccount); err != nil {
		return nil, err
	}
	publishBooksChanged(ctx, companyId)

	return masterAccount, nil
}

func DeleteMasterAccount(ctx context.Context, id int) (*MasterAccount, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	db := config.GetDB()

	result, err := utils.FetchModel[MasterAccount](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	// refuse to delete accounts still referenced by transactions
	var refCount int64
	if result.Category == AccountCategoryBank {
		refCount, err = utils.ResourceCountWhere[Transaction](ctx, companyId, "bank_name = ?", result.Name)
	} else {
		refCount, err = utils.ResourceCountWhere[Transaction](ctx, companyId, "account_id = ?", result.ID)
	}
	if err != nil {
		return nil, err
	}
	if refCount > 0 {
		return nil, utils.NewValidationError("%s has %d transactions; delete them first", result.Name, refCount)
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}

	return result, nil
}

func GetMasterAccount(ctx context.Context, id int) (*MasterAccount, error) {
	return GetResource[MasterAccount](ctx, id)
}

// GetMasterAccounts lists a category's directory, redis first then db.
func GetMasterAccounts(ctx context.Context, category AccountCategory) ([]*MasterAccount, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	if _, err := ParseAccountCategory(string(category)); err != nil {
		return nil, utils.NewValidationError("invalid category %s", category)
	}

	cacheKey := masterListCacheKey(companyId, category)
	var results []*MasterAccount
	exists, err := config.GetRedisObject(cacheKey, &results)
	if err != nil {
		return nil, err
	}
	if exists {
		return results, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Where("company_id = ? AND category = ?", companyId, category).
		Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(cacheKey, &results, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveMasterAccount(ctx context.Context, id int, isActive bool) (*MasterAccount, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return ToggleActiveModel[MasterAccount](ctx, companyId, id, isActive)
}

// renameAccountOnTransactions rewrites denormalized names on transaction rows.
func renameAccountOnTransactions(ctx context.Context, companyId string, category AccountCategory, id int, oldName string, newName string) error {
	db := config.GetDB()
	if category == AccountCategoryBank {
		return db.WithContext(ctx).Model(&Transaction{}).
			Where("company_id = ? AND bank_name = ?", companyId, oldName).
			UpdateColumn("bank_name", newName).Error
	}
	return db.WithContext(ctx).Model(&Transaction{}).
		Where("company_id = ? AND account_id = ?", companyId, id).
		UpdateColumn("account_name", newName).Error
}
