package ledger

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"github.com/shopspring/decimal"
)

// Seed is one master account to pre-list in the trial balance, so newly
// created accounts show up before their first transaction.
type Seed struct {
	Category models.AccountCategory
	Name     string
}

// TrialBalanceRow is one account's accumulated debit and credit totals.
type TrialBalanceRow struct {
	Category models.AccountCategory `json:"category"`
	Name     string                 `json:"name"`
	Debit    decimal.Decimal        `json:"debit"`
	Credit   decimal.Decimal        `json:"credit"`
}

// Net is debit minus credit; positive nets are Dr, negative Cr.
func (r TrialBalanceRow) Net() decimal.Decimal {
	return r.Debit.Sub(r.Credit)
}

// TrialBalance holds every seeded or touched account. Rows is the full
// sorted set; DisplayRows hides untouched zero rows, and the totals run
// over the displayed rows only.
type TrialBalance struct {
	Rows        []TrialBalanceRow  `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	Warnings    []IntegrityWarning `json:"warnings,omitempty"`
}

// DisplayRows returns the rows with a nonzero debit or credit.
func (tb *TrialBalance) DisplayRows() []TrialBalanceRow {
	rows := make([]TrialBalanceRow, 0, len(tb.Rows))
	for _, r := range tb.Rows {
		if r.Debit.IsZero() && r.Credit.IsZero() {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// Imbalance is |total debit - total credit|; zero in a correctly
// double-posted book.
func (tb *TrialBalance) Imbalance() decimal.Decimal {
	return tb.TotalDebit.Sub(tb.TotalCredit).Abs()
}

type tbKey struct {
	category models.AccountCategory
	name     string
}

// BuildTrialBalance aggregates a snapshot into per-account debit/credit
// totals. Seeds come from the master directory; the fixed cash books are
// always seeded. Each transaction posts its bank/cash side, and the
// mirrored counter-account side unless the counter-account is contra (the
// partner leg posts its own bank/cash side, so mirroring would double
// count the transfer).
func BuildTrialBalance(snapshot []models.Transaction, seeds []Seed) (*TrialBalance, error) {
	tb := &TrialBalance{}
	entries := map[tbKey]*TrialBalanceRow{}

	ensure := func(category models.AccountCategory, name string) *TrialBalanceRow {
		key := tbKey{category: category, name: name}
		entry, ok := entries[key]
		if !ok {
			entry = &TrialBalanceRow{Category: category, Name: name}
			entries[key] = entry
		}
		return entry
	}

	for _, seed := range seeds {
		ensure(seed.Category, seed.Name)
	}
	for _, cashName := range models.CashAccountNames {
		ensure(models.AccountCategoryCash, cashName)
	}

	for _, t := range snapshot {
		if warn := checkIntegrity(t); warn != nil {
			if config.StrictAmountIntegrity() {
				return nil, fmt.Errorf("transaction %d: %s", warn.TransactionId, warn.Reason)
			}
			// flagged records contribute zero
			tb.Warnings = append(tb.Warnings, *warn)
			continue
		}
		if t.Amount.IsZero() {
			continue
		}

		// bank/cash side
		bookCategory := models.AccountCategoryBank
		if models.IsCashAccountName(t.BankName) {
			bookCategory = models.AccountCategoryCash
		}
		book := ensure(bookCategory, t.BankName)
		if t.Kind.IsReceipt() {
			book.Debit = book.Debit.Add(t.Amount)
		} else {
			book.Credit = book.Credit.Add(t.Amount)
		}

		// mirrored counter-account side
		if t.AccountType == models.AccountCategoryContra {
			continue
		}
		accountName := t.AccountName
		if accountName == "" {
			accountName = "-"
		}
		account := ensure(t.AccountType, accountName)
		if t.Kind.IsReceipt() {
			account.Credit = account.Credit.Add(t.Amount)
		} else {
			account.Debit = account.Debit.Add(t.Amount)
		}
	}

	rows := make([]TrialBalanceRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, *entry)
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Category != rows[b].Category {
			return rows[a].Category < rows[b].Category
		}
		return rows[a].Name < rows[b].Name
	})
	tb.Rows = rows

	for _, r := range tb.DisplayRows() {
		tb.TotalDebit = tb.TotalDebit.Add(r.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(r.Credit)
	}
	return tb, nil
}

// SeedsFromMasters converts master directory rows into trial balance seeds.
func SeedsFromMasters(masters []*models.MasterAccount) []Seed {
	seeds := make([]Seed, 0, len(masters))
	for _, m := range masters {
		seeds = append(seeds, Seed{Category: m.Category, Name: m.Name})
	}
	return seeds
}
