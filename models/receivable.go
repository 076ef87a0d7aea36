package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/shopspring/decimal"
)

// Receivable is money a party owes the company, tracked outside the books.
type Receivable struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CompanyId   string          `gorm:"index;not null" json:"company_id"`
	PartyId     int             `gorm:"index;not null" json:"party_id"`
	PartyName   string          `gorm:"size:100" json:"party_name"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	IsSettled   *bool           `gorm:"not null;default:false" json:"is_settled"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReceivable struct {
	PartyId     int         `json:"party_id" binding:"required"`
	Amount      string      `json:"amount" binding:"required"`
	Description string      `json:"description"`
	DueDate     *DateString `json:"due_date"`
}

func (r Receivable) GetCompanyId() string {
	return r.CompanyId
}

func (input *NewReceivable) validate(ctx context.Context, companyId string, id int) (decimal.Decimal, *MasterAccount, error) {
	if id > 0 {
		if err := utils.ValidateResourceId[Receivable](ctx, companyId, id); err != nil {
			return decimal.Zero, nil, err
		}
	}
	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, nil, utils.NewValidationError("amount must be a non-negative number")
	}
	party, err := utils.FetchModel[MasterAccount](ctx, companyId, input.PartyId)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if party.Category != AccountCategoryParty {
		return decimal.Zero, nil, utils.NewValidationError("%s is not a party", party.Name)
	}
	return amount, party, nil
}

func CreateReceivable(ctx context.Context, input *NewReceivable) (*Receivable, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	amount, party, err := input.validate(ctx, companyId, 0)
	if err != nil {
		return nil, err
	}

	receivable := Receivable{
		CompanyId:   companyId,
		PartyId:     party.ID,
		PartyName:   party.Name,
		Amount:      amount,
		Description: input.Description,
		IsSettled:   utils.NewFalse(),
	}
	if input.DueDate != nil {
		due := time.Time(*input.DueDate)
		receivable.DueDate = &due
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&receivable).Error; err != nil {
		return nil, err
	}
	return &receivable, nil
}

func UpdateReceivable(ctx context.Context, id int, input *NewReceivable) (*Receivable, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	amount, party, err := input.validate(ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	receivable, err := utils.FetchModel[Receivable](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"PartyId":     party.ID,
		"PartyName":   party.Name,
		"Amount":      amount,
		"Description": input.Description,
	}
	if input.DueDate != nil {
		updates["DueDate"] = time.Time(*input.DueDate)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&receivable).Updates(updates).Error; err != nil {
		return nil, err
	}
	return receivable, nil
}

func DeleteReceivable(ctx context.Context, id int) (*Receivable, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	result, err := utils.FetchModel[Receivable](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// GetReceivables lists dues, optionally only unsettled ones, newest first.
func GetReceivables(ctx context.Context, onlyOpen bool) ([]*Receivable, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if onlyOpen {
		dbCtx = dbCtx.Where("is_settled = ?", false)
	}
	var results []*Receivable
	if err := dbCtx.Order("created_at desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleSettledReceivable(ctx context.Context, id int, isSettled bool) (*Receivable, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	result, err := utils.FetchModel[Receivable](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&result).
		UpdateColumn("IsSettled", isSettled).Error; err != nil {
		return nil, err
	}
	return result, nil
}
