// Package ledger derives book views and the trial balance from complete
// transaction snapshots. Everything here is pure: no I/O, no shared state,
// safe to recompute concurrently from independent snapshots.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"github.com/shopspring/decimal"
)

// IntegrityWarning flags a stored record that aggregation had to skip or
// zero out. Non-fatal: the rest of the view still renders.
type IntegrityWarning struct {
	TransactionId int    `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// ViewConfig selects and shapes one book view.
type ViewConfig struct {
	Scope models.LedgerScope
	// BankName filters to one bank or cash book; "" or "all" disables it.
	BankName string
	// AccountId filters to one counter-account (party/expense/income books).
	AccountId int
	// From/To are inclusive bounds, already widened to day edges by the
	// caller. Nil means unbounded.
	From *time.Time
	To   *time.Time

	Order          models.SortOrder
	CondenseContra bool
	ShowBalance    bool
}

// Row is one display line: either a single transaction or, when condensing,
// a synthetic row aggregating a contra group's legs.
type Row struct {
	Transaction *models.Transaction `json:"transaction,omitempty"`

	IsContraGroup bool               `json:"is_contra_group"`
	GroupId       string             `json:"group_id,omitempty"`
	ContraType    models.ContraType  `json:"contra_type,omitempty"`
	ContraSource  string             `json:"contra_source,omitempty"`
	ContraTarget  string             `json:"contra_target,omitempty"`
	Label         string             `json:"label,omitempty"`
	ReceiptAmount decimal.Decimal    `json:"receipt_amount"`
	PaymentAmount decimal.Decimal    `json:"payment_amount"`
	Date          time.Time          `json:"date"`
	Balance       *decimal.Decimal   `json:"balance,omitempty"`
}

// View is the derived row set for one book.
type View struct {
	Rows     []Row              `json:"rows"`
	Warnings []IntegrityWarning `json:"warnings,omitempty"`
}

// BuildView filters, sorts and (optionally) contra-condenses a snapshot
// into display rows. With STRICT_AMOUNT_INTEGRITY set, integrity warnings
// become errors instead.
func BuildView(snapshot []models.Transaction, cfg ViewConfig) (*View, error) {
	view := &View{Rows: []Row{}}

	eligible := make([]models.Transaction, 0, len(snapshot))
	for _, t := range snapshot {
		if !inScope(t, cfg.Scope) {
			continue
		}
		if cfg.BankName != "" && cfg.BankName != "all" && t.BankName != cfg.BankName {
			continue
		}
		if cfg.AccountId > 0 && t.AccountId != cfg.AccountId {
			continue
		}
		if !inDateRange(t.Date, cfg.From, cfg.To) {
			continue
		}
		if warn := checkIntegrity(t); warn != nil {
			if config.StrictAmountIntegrity() {
				return nil, fmt.Errorf("transaction %d: %s", warn.TransactionId, warn.Reason)
			}
			view.Warnings = append(view.Warnings, *warn)
		}
		eligible = append(eligible, t)
	}

	if cfg.CondenseContra {
		view.Rows = condenseRows(eligible, cfg.Order)
		// condensed views never carry a running balance: grouped totals
		// are not chronologically comparable per-leg
		return view, nil
	}

	sortTransactions(eligible, cfg.Order)
	rows := make([]Row, 0, len(eligible))
	for i := range eligible {
		rows = append(rows, plainRow(&eligible[i]))
	}
	if cfg.ShowBalance {
		attachBalances(rows)
	}
	view.Rows = rows
	return view, nil
}

func inScope(t models.Transaction, scope models.LedgerScope) bool {
	switch scope {
	case models.LedgerScopeBank:
		return t.Kind.IsBank()
	case models.LedgerScopeCash:
		return !t.Kind.IsBank()
	case models.LedgerScopeParty:
		return t.AccountType == models.AccountCategoryParty
	case models.LedgerScopeExpense:
		return t.AccountType == models.AccountCategoryExpense
	case models.LedgerScopeIncome:
		return t.AccountType == models.AccountCategoryIncome
	default:
		return true
	}
}

// inDateRange is inclusive at both ends. Zero dates are never excluded.
func inDateRange(date time.Time, from *time.Time, to *time.Time) bool {
	if date.IsZero() {
		return true
	}
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}

func checkIntegrity(t models.Transaction) *IntegrityWarning {
	if !t.Kind.IsValid() {
		return &IntegrityWarning{TransactionId: t.ID, Reason: "unknown transaction kind " + string(t.Kind)}
	}
	if t.Amount.IsNegative() {
		return &IntegrityWarning{TransactionId: t.ID, Reason: "negative amount " + t.Amount.String()}
	}
	return nil
}

func plainRow(t *models.Transaction) Row {
	row := Row{
		Transaction: t,
		Date:        t.Date,
	}
	if t.Kind.IsReceipt() {
		row.ReceiptAmount = t.Amount
	} else {
		row.PaymentAmount = t.Amount
	}
	return row
}

// condenseRows groups contra legs by group id into one synthetic row each,
// merges them with the regular rows and re-sorts.
func condenseRows(transactions []models.Transaction, order models.SortOrder) []Row {
	sortTransactions(transactions, models.SortOrderAsc)

	grouped := map[string]*Row{}
	groupOrder := []string{}
	rows := []Row{}

	for i := range transactions {
		t := &transactions[i]
		if !t.IsContraLeg() {
			rows = append(rows, plainRow(t))
			continue
		}
		key := *t.ContraGroupId
		entry, ok := grouped[key]
		if !ok {
			entry = &Row{
				IsContraGroup: true,
				GroupId:       key,
				Date:          t.Date, // first-seen leg's date
				ContraSource:  stringValue(t.ContraSource),
				ContraTarget:  stringValue(t.ContraTarget),
			}
			if t.ContraType != nil {
				entry.ContraType = *t.ContraType
			}
			entry.Label = entry.ContraType.Label()
			grouped[key] = entry
			groupOrder = append(groupOrder, key)
		}
		if t.Kind.IsReceipt() {
			entry.ReceiptAmount = entry.ReceiptAmount.Add(t.Amount)
		} else {
			entry.PaymentAmount = entry.PaymentAmount.Add(t.Amount)
		}
	}

	for _, key := range groupOrder {
		rows = append(rows, *grouped[key])
	}
	sortRows(rows, order)
	return rows
}

// attachBalances walks rows chronologically, accumulating the signed amount,
// then writes each row's balance back in display position. The balance a
// transaction carries is therefore independent of display order.
func attachBalances(rows []Row) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rows[idx[a]].Date.Before(rows[idx[b]].Date)
	})

	running := decimal.Zero
	for _, i := range idx {
		if rows[i].Transaction == nil {
			continue
		}
		if warnable := checkIntegrity(*rows[i].Transaction); warnable != nil {
			// flagged records contribute zero
			balance := running
			rows[i].Balance = &balance
			continue
		}
		running = running.Add(rows[i].Transaction.SignedAmount())
		balance := running
		rows[i].Balance = &balance
	}
}

func sortTransactions(list []models.Transaction, order models.SortOrder) {
	sort.SliceStable(list, func(a, b int) bool {
		if order == models.SortOrderDesc {
			return list[a].Date.After(list[b].Date)
		}
		return list[a].Date.Before(list[b].Date)
	})
}

func sortRows(rows []Row, order models.SortOrder) {
	sort.SliceStable(rows, func(a, b int) bool {
		if order == models.SortOrderDesc {
			return rows[a].Date.After(rows[b].Date)
		}
		return rows[a].Date.Before(rows[b].Date)
	})
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
