package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type TransactionKind string

const (
	TransactionKindBankReceipt TransactionKind = "bank_receipt"
	TransactionKindBankPayment TransactionKind = "bank_payment"
	TransactionKindCashReceipt TransactionKind = "cash_receipt"
	TransactionKindCashPayment TransactionKind = "cash_payment"
)

func ParseTransactionKind(s string) (TransactionKind, error) {
	switch s {
	case "bank_receipt":
		return TransactionKindBankReceipt, nil
	case "bank_payment":
		return TransactionKindBankPayment, nil
	case "cash_receipt":
		return TransactionKindCashReceipt, nil
	case "cash_payment":
		return TransactionKindCashPayment, nil
	default:
		return "", errors.New("invalid transaction kind")
	}
}

func (t *TransactionKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("transaction kind must be string")
	}
	kind, err := ParseTransactionKind(str)
	if err != nil {
		return err
	}
	*t = kind
	return nil
}

// IsReceipt reports whether the kind adds to the bank/cash balance.
func (t TransactionKind) IsReceipt() bool {
	return t == TransactionKindBankReceipt || t == TransactionKindCashReceipt
}

// IsBank reports whether the kind posts to a bank book (vs a cash book).
func (t TransactionKind) IsBank() bool {
	return t == TransactionKindBankReceipt || t == TransactionKindBankPayment
}

func (t TransactionKind) IsValid() bool {
	_, err := ParseTransactionKind(string(t))
	return err == nil
}

type AccountCategory string

const (
	AccountCategoryBank    AccountCategory = "bank"
	AccountCategoryCash    AccountCategory = "cash"
	AccountCategoryParty   AccountCategory = "party"
	AccountCategoryExpense AccountCategory = "expense"
	AccountCategoryIncome  AccountCategory = "income"
	AccountCategoryContra  AccountCategory = "contra"
)

func ParseAccountCategory(s string) (AccountCategory, error) {
	switch s {
	case "bank":
		return AccountCategoryBank, nil
	case "cash":
		return AccountCategoryCash, nil
	case "party":
		return AccountCategoryParty, nil
	case "expense":
		return AccountCategoryExpense, nil
	case "income":
		return AccountCategoryIncome, nil
	case "contra":
		return AccountCategoryContra, nil
	default:
		return "", errors.New("invalid account category")
	}
}

func (t *AccountCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("account category must be string")
	}
	cat, err := ParseAccountCategory(str)
	if err != nil {
		return err
	}
	*t = cat
	return nil
}

// MasterCategories are the categories backed by master_accounts rows.
// Cash accounts come from the fixed CashAccountNames list instead.
var MasterCategories = []AccountCategory{
	AccountCategoryBank,
	AccountCategoryParty,
	AccountCategoryExpense,
	AccountCategoryIncome,
}

type ContraType string

const (
	ContraTypeCashToBank ContraType = "cash-bank"
	ContraTypeBankToCash ContraType = "bank-cash"
	ContraTypeBankToBank ContraType = "bank-bank"
)

func ParseContraType(s string) (ContraType, error) {
	switch s {
	case "cash-bank":
		return ContraTypeCashToBank, nil
	case "bank-cash":
		return ContraTypeBankToCash, nil
	case "bank-bank":
		return ContraTypeBankToBank, nil
	default:
		return "", errors.New("invalid contra type")
	}
}

// Label is the display name used on condensed contra rows.
func (t ContraType) Label() string {
	switch t {
	case ContraTypeCashToBank:
		return "Deposit"
	case ContraTypeBankToCash:
		return "Withdrawal"
	case ContraTypeBankToBank:
		return "Transfer"
	default:
		return string(t)
	}
}

type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return SortOrderAsc, nil
	case "desc":
		return SortOrderDesc, nil
	default:
		return "", errors.New("invalid sort order")
	}
}

type LedgerScope string

const (
	LedgerScopeBank    LedgerScope = "bank"
	LedgerScopeCash    LedgerScope = "cash"
	LedgerScopeAll     LedgerScope = "all"
	LedgerScopeParty   LedgerScope = "party"
	LedgerScopeExpense LedgerScope = "expense"
	LedgerScopeIncome  LedgerScope = "income"
)

func ParseLedgerScope(s string) (LedgerScope, error) {
	switch s {
	case "bank":
		return LedgerScopeBank, nil
	case "cash":
		return LedgerScopeCash, nil
	case "", "all":
		return LedgerScopeAll, nil
	case "party":
		return LedgerScopeParty, nil
	case "expense":
		return LedgerScopeExpense, nil
	case "income":
		return LedgerScopeIncome, nil
	default:
		return "", errors.New("invalid ledger scope")
	}
}

// CashAccountNames is the fixed set of cash books every company has.
// They need no master_accounts row.
var CashAccountNames = []string{"Cash", "Petty Cash"}

func IsCashAccountName(name string) bool {
	for _, n := range CashAccountNames {
		if n == name {
			return true
		}
	}
	return false
}

type DateString time.Time

const dateStringLayout = "2006-01-02"

func (t DateString) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(dateStringLayout))
}

// Parse the string into time.Time object
func (t *DateString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("DateString must be string")
	}

	// Parse the date string into a time.Time object
	localTime, err := time.Parse(dateStringLayout, str)
	if err != nil {
		// fall back to full timestamps
		localTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return errors.New("error parsing datetime")
		}
	}
	*t = DateString(localTime)

	return nil
}

func (t *DateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Kolkata"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		fmt.Println("Error loading location:", err)
		return err
	}

	// Convert the start of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	// Convert the time to UTC
	utcTime := localTimeInZone.In(time.UTC)
	*t = DateString(utcTime)

	return nil
}

func (t *DateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Kolkata"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		fmt.Println("Error loading location:", err)
		return err
	}

	// Convert the end of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999000000,
		location,
	)

	// Convert the time to UTC
	utcTime := localTimeInZone.In(time.UTC)
	*t = DateString(utcTime)

	return nil
}

// Value implements the driver.Valuer interface
func (t DateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *DateString) Scan(value interface{}) error {
	if value == nil {
		*t = DateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = DateString(v)
	default:
		return fmt.Errorf("cannot convert %T to DateString", value)
	}
	return nil
}

func (t *DateString) SetDefaultNowIfNil() *DateString {
	if t == nil {
		now := DateString(time.Now())
		return &now
	}
	return t
}
