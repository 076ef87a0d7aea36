package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/feed"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/shopspring/decimal"
)

// Transaction is one signed ledger record: a receipt or payment against a
// bank or cash book, paired with a counter-account for double-entry.
type Transaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CompanyId   string          `gorm:"index;not null" json:"company_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Kind        TransactionKind `gorm:"index;type:enum('bank_receipt', 'bank_payment', 'cash_receipt', 'cash_payment');not null" json:"kind"`
	BankName    string          `gorm:"index;size:100;not null" json:"bank_name"`
	AccountId   int             `gorm:"index" json:"account_id"`
	AccountName string          `gorm:"size:100" json:"account_name"`
	AccountType AccountCategory `gorm:"size:20" json:"account_type"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Description string          `gorm:"type:text" json:"description"`

	// contra transfer metadata, set only on transfer-generated legs
	ContraGroupId *string     `gorm:"index;size:36" json:"contra_group_id,omitempty"`
	ContraType    *ContraType `gorm:"size:20" json:"contra_type,omitempty"`
	ContraSource  *string     `gorm:"size:100" json:"contra_source,omitempty"`
	ContraTarget  *string     `gorm:"size:100" json:"contra_target,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTransaction struct {
	Amount      string          `json:"amount" binding:"required"`
	Kind        TransactionKind `json:"kind" binding:"required"`
	BankName    string          `json:"bank_name" binding:"required"`
	AccountId   int             `json:"account_id"`
	Date        *DateString     `json:"date" binding:"required"`
	Description string          `json:"description"`
}

func (t Transaction) GetCompanyId() string {
	return t.CompanyId
}

// IsContraLeg reports whether this record belongs to a contra transfer group.
func (t Transaction) IsContraLeg() bool {
	return t.ContraGroupId != nil && *t.ContraGroupId != ""
}

// SignedAmount is +amount for receipts, -amount for payments.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Kind.IsReceipt() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// publishBooksChanged wakes snapshot subscribers, in-process and cross-instance.
func publishBooksChanged(ctx context.Context, companyId string) {
	feed.Publish(companyId)
	config.PublishRedis(BooksChannel(companyId), "changed")
}

// BooksChannel is the redis pub/sub channel carrying change notifications
// for one company's books.
func BooksChannel(companyId string) string {
	return "ledgerbook:books:" + companyId
}

type validatedEntry struct {
	amount      decimal.Decimal
	date        time.Time
	accountName string
	accountType AccountCategory
}

// validate input for both create & update. (id = 0 for create)
// Manual entries never carry contra metadata; transfers go through contra.go.
func (input *NewTransaction) validate(ctx context.Context, companyId string, id int) (*validatedEntry, error) {
	if id > 0 {
		if err := utils.ValidateResourceId[Transaction](ctx, companyId, id); err != nil {
			return nil, err
		}
	}

	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, utils.NewValidationError("amount must be numeric")
	}
	if amount.IsNegative() {
		return nil, utils.NewValidationError("amount must not be negative")
	}

	if !input.Kind.IsValid() {
		return nil, utils.NewValidationError("invalid transaction kind")
	}

	if input.Date == nil {
		return nil, utils.NewValidationError("date is required")
	}
	date := time.Time(*input.Date)
	if date.IsZero() {
		return nil, utils.NewValidationError("date is required")
	}

	// the kind's bank_/cash_ prefix must match the book it posts against
	if input.BankName == "" {
		return nil, utils.NewValidationError("bank or cash account is required")
	}
	if input.Kind.IsBank() {
		if IsCashAccountName(input.BankName) {
			return nil, utils.NewValidationError("%s is a cash account; use a cash kind", input.BankName)
		}
		count, err := utils.ResourceCountWhere[MasterAccount](ctx, companyId,
			"category = ? AND name = ?", AccountCategoryBank, input.BankName)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, utils.NewValidationError("unknown bank %s", input.BankName)
		}
	} else {
		if !IsCashAccountName(input.BankName) {
			return nil, utils.NewValidationError("%s is not a cash account", input.BankName)
		}
	}

	// counter-account
	if input.AccountId <= 0 {
		return nil, utils.NewValidationError("counter account is required")
	}
	account, err := utils.FetchModel[MasterAccount](ctx, companyId, input.AccountId)
	if err != nil {
		return nil, err
	}
	switch account.Category {
	case AccountCategoryParty, AccountCategoryExpense, AccountCategoryIncome:
	default:
		return nil, utils.NewValidationError("account %s cannot be used as a counter account", account.Name)
	}

	return &validatedEntry{
		amount:      amount,
		date:        date,
		accountName: account.Name,
		accountType: account.Category,
	}, nil
}

func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	entry, err := input.validate(ctx, companyId, 0)
	if err != nil {
		return nil, err
	}

	transaction := Transaction{
		CompanyId:   companyId,
		Amount:      entry.amount,
		Kind:        input.Kind,
		BankName:    input.BankName,
		AccountId:   input.AccountId,
		AccountName: entry.accountName,
		AccountType: entry.accountType,
		Date:        entry.date,
		Description: input.Description,
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&transaction).Error; err != nil {
		return nil, err
	}

	publishBooksChanged(ctx, companyId)
	return &transaction, nil
}

func UpdateTransaction(ctx context.Context, id int, input *NewTransaction) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, id)
	if err != nil {
		return nil, err
	}
	// a contra leg can only change together with its partner
	if transaction.IsContraLeg() {
		return nil, utils.NewValidationError("transaction %d belongs to transfer group %s; edit the transfer instead", id, *transaction.ContraGroupId)
	}

	entry, err := input.validate(ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&transaction).Updates(map[string]interface{}{
		"Amount":      entry.amount,
		"Kind":        input.Kind,
		"BankName":    input.BankName,
		"AccountId":   input.AccountId,
		"AccountName": entry.accountName,
		"AccountType": entry.accountType,
		"Date":        entry.date,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}

	publishBooksChanged(ctx, companyId)
	return transaction, nil
}

func DeleteTransaction(ctx context.Context, id int) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	db := config.GetDB()

	result, err := utils.FetchModel[Transaction](ctx, companyId, id)
	if err != nil {
		return nil, err
	}
	if result.IsContraLeg() {
		return nil, utils.NewValidationError("transaction %d belongs to transfer group %s; delete the transfer instead", id, *result.ContraGroupId)
	}

	// db action
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	publishBooksChanged(ctx, companyId)
	return result, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchModel[Transaction](ctx, companyId, id)
}

// TransactionsSnapshot reads a company's complete transaction set ordered by
// date then id. Every derived view recomputes from one of these snapshots.
func TransactionsSnapshot(ctx context.Context, companyId string) ([]Transaction, error) {
	db := config.GetDB()
	var results []Transaction
	err := db.WithContext(ctx).
		Where("company_id = ?", companyId).
		Order("date asc").Order("id asc").
		Find(&results).Error
	if err != nil {
		return nil, utils.ErrorStoreUnavailable
	}
	return results, nil
}
