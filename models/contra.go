package models

import (
	"context"
	"errors"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A contra transfer moves funds between two of the company's own books and
// is stored as two linked legs: a payment out of the source and a receipt
// into the target, sharing one contra group id.

type NewContraTransfer struct {
	Amount      string      `json:"amount" binding:"required"`
	Source      string      `json:"source" binding:"required"`
	Target      string      `json:"target" binding:"required"`
	Date        *DateString `json:"date" binding:"required"`
	Description string      `json:"description"`
}

// legWriter is the single-record mutation surface the saga runs against.
// The store offers no multi-record transaction for the two creates, so the
// saga compensates explicitly instead.
type legWriter interface {
	CreateLeg(ctx context.Context, leg *Transaction) error
	DeleteLeg(ctx context.Context, leg *Transaction) error
}

type dbLegWriter struct{}

func (dbLegWriter) CreateLeg(ctx context.Context, leg *Transaction) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(leg).Error; err != nil {
		return utils.ErrorStoreUnavailable
	}
	return nil
}

func (dbLegWriter) DeleteLeg(ctx context.Context, leg *Transaction) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(leg).Error; err != nil {
		return utils.ErrorStoreUnavailable
	}
	return nil
}

type validatedTransfer struct {
	amount     decimal.Decimal
	date       time.Time
	contraType ContraType
}

func (input *NewContraTransfer) validate(ctx context.Context, companyId string) (*validatedTransfer, error) {
	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, utils.NewValidationError("amount must be numeric")
	}
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("transfer amount must be positive")
	}

	if input.Date == nil {
		return nil, utils.NewValidationError("date is required")
	}
	date := time.Time(*input.Date)
	if date.IsZero() {
		return nil, utils.NewValidationError("date is required")
	}

	if input.Source == input.Target {
		return nil, utils.NewValidationError("source and target must differ")
	}

	sourceIsCash := IsCashAccountName(input.Source)
	targetIsCash := IsCashAccountName(input.Target)
	if sourceIsCash && targetIsCash {
		return nil, utils.NewValidationError("cash to cash transfers are not supported")
	}
	for _, name := range []string{input.Source, input.Target} {
		if IsCashAccountName(name) {
			continue
		}
		count, err := utils.ResourceCountWhere[MasterAccount](ctx, companyId,
			"category = ? AND name = ?", AccountCategoryBank, name)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, utils.NewValidationError("unknown bank %s", name)
		}
	}

	var contraType ContraType
	switch {
	case sourceIsCash:
		contraType = ContraTypeCashToBank
	case targetIsCash:
		contraType = ContraTypeBankToCash
	default:
		contraType = ContraTypeBankToBank
	}

	return &validatedTransfer{amount: amount, date: date, contraType: contraType}, nil
}

// buildContraLegs constructs the payment and receipt legs of a transfer.
func buildContraLegs(companyId string, groupId string, input *NewContraTransfer, v *validatedTransfer) (*Transaction, *Transaction) {
	paymentKind := TransactionKindBankPayment
	if IsCashAccountName(input.Source) {
		paymentKind = TransactionKindCashPayment
	}
	receiptKind := TransactionKindBankReceipt
	if IsCashAccountName(input.Target) {
		receiptKind = TransactionKindCashReceipt
	}

	contraType := v.contraType
	source := input.Source
	target := input.Target

	payment := &Transaction{
		CompanyId:     companyId,
		Amount:        v.amount,
		Kind:          paymentKind,
		BankName:      input.Source,
		AccountName:   input.Target,
		AccountType:   AccountCategoryContra,
		Date:          v.date,
		Description:   input.Description,
		ContraGroupId: &groupId,
		ContraType:    &contraType,
		ContraSource:  &source,
		ContraTarget:  &target,
	}
	receipt := &Transaction{
		CompanyId:     companyId,
		Amount:        v.amount,
		Kind:          receiptKind,
		BankName:      input.Target,
		AccountName:   input.Source,
		AccountType:   AccountCategoryContra,
		Date:          v.date,
		Description:   input.Description,
		ContraGroupId: &groupId,
		ContraType:    &contraType,
		ContraSource:  &source,
		ContraTarget:  &target,
	}
	return payment, receipt
}

// runContraSaga persists the two legs as independent creates. If the second
// create fails it attempts a compensating delete of the first leg; if that
// also fails (or compensation is disabled) the orphaned leg is reported via
// PartialTransferFailure for manual reconciliation.
func runContraSaga(ctx context.Context, writer legWriter, first *Transaction, second *Transaction) error {
	if err := writer.CreateLeg(ctx, first); err != nil {
		return err
	}
	if err := writer.CreateLeg(ctx, second); err != nil {
		if config.DisableContraCompensation() {
			return &utils.PartialTransferFailure{
				GroupId:     utils.DereferencePtr(first.ContraGroupId),
				OrphanLegId: itoa(first.ID),
				Err:         err,
			}
		}
		if delErr := writer.DeleteLeg(ctx, first); delErr != nil {
			return &utils.PartialTransferFailure{
				GroupId:     utils.DereferencePtr(first.ContraGroupId),
				OrphanLegId: itoa(first.ID),
				Err:         err,
			}
		}
		return err
	}
	return nil
}

func itoa(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func CreateContraTransfer(ctx context.Context, input *NewContraTransfer) ([]*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	v, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}

	// serialize transfers per company while the two legs land
	lock, err := utils.CompanyLock(ctx, companyId, "contra", "models", "CreateContraTransfer")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	groupId := uuid.New().String()
	payment, receipt := buildContraLegs(companyId, groupId, input, v)

	if err := runContraSaga(ctx, dbLegWriter{}, payment, receipt); err != nil {
		var partial *utils.PartialTransferFailure
		if errors.As(err, &partial) {
			logger := config.GetLogger()
			config.LogError(logger, "models", "CreateContraTransfer",
				"orphaned transfer leg needs manual cleanup", partial.OrphanLegId, err)
		}
		return nil, err
	}

	publishBooksChanged(ctx, companyId)
	return []*Transaction{payment, receipt}, nil
}

// GetContraGroup returns all legs of one transfer group.
func GetContraGroup(ctx context.Context, groupId string) ([]*Transaction, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var legs []*Transaction
	err := db.WithContext(ctx).
		Where("company_id = ? AND contra_group_id = ?", companyId, groupId).
		Order("id asc").Find(&legs).Error
	if err != nil {
		return nil, utils.ErrorStoreUnavailable
	}
	if len(legs) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return legs, nil
}

// UpdateContraTransfer rewrites every leg of a group in one db transaction,
// so the pair can never drift apart through an edit.
func UpdateContraTransfer(ctx context.Context, groupId string, input *NewContraTransfer) ([]*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	v, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}

	legs, err := GetContraGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.CompanyLock(ctx, companyId, "contra", "models", "UpdateContraTransfer")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	payment, receipt := buildContraLegs(companyId, groupId, input, v)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	for _, leg := range legs {
		replacement := receipt
		if !leg.Kind.IsReceipt() {
			replacement = payment
		}
		err := tx.Model(&Transaction{}).
			Where("id = ? AND company_id = ?", leg.ID, companyId).
			Updates(map[string]interface{}{
				"Amount":       replacement.Amount,
				"Kind":         replacement.Kind,
				"BankName":     replacement.BankName,
				"AccountName":  replacement.AccountName,
				"Date":         replacement.Date,
				"Description":  replacement.Description,
				"ContraType":   replacement.ContraType,
				"ContraSource": replacement.ContraSource,
				"ContraTarget": replacement.ContraTarget,
			}).Error
		if err != nil {
			tx.Rollback()
			return nil, utils.ErrorStoreUnavailable
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.ErrorStoreUnavailable
	}

	publishBooksChanged(ctx, companyId)
	return GetContraGroup(ctx, groupId)
}

// DeleteContraGroup removes every leg of a transfer in one db transaction.
func DeleteContraGroup(ctx context.Context, groupId string) ([]*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	legs, err := GetContraGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.CompanyLock(ctx, companyId, "contra", "models", "DeleteContraGroup")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("company_id = ? AND contra_group_id = ?", companyId, groupId).
		Delete(&Transaction{}).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorStoreUnavailable
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.ErrorStoreUnavailable
	}

	publishBooksChanged(ctx, companyId)
	return legs, nil
}
