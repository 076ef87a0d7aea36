package ledger

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, 4, d, 10, 0, 0, 0, time.UTC)
}

func amt(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func bankTxn(id int, kind models.TransactionKind, bank string, amount string, date time.Time) models.Transaction {
	return models.Transaction{
		ID:          id,
		CompanyId:   "company-1",
		Amount:      amt(amount),
		Kind:        kind,
		BankName:    bank,
		AccountId:   1,
		AccountName: "Rent",
		AccountType: models.AccountCategoryExpense,
		Date:        date,
	}
}

func contraPair(id1, id2 int, group string, source, target string, amount string, date time.Time) []models.Transaction {
	ct := models.ContraTypeBankToBank
	if models.IsCashAccountName(source) {
		ct = models.ContraTypeCashToBank
	} else if models.IsCashAccountName(target) {
		ct = models.ContraTypeBankToCash
	}
	paymentKind := models.TransactionKindBankPayment
	if models.IsCashAccountName(source) {
		paymentKind = models.TransactionKindCashPayment
	}
	receiptKind := models.TransactionKindBankReceipt
	if models.IsCashAccountName(target) {
		receiptKind = models.TransactionKindCashReceipt
	}
	mk := func(id int, kind models.TransactionKind, bank string) models.Transaction {
		return models.Transaction{
			ID:            id,
			CompanyId:     "company-1",
			Amount:        amt(amount),
			Kind:          kind,
			BankName:      bank,
			AccountType:   models.AccountCategoryContra,
			Date:          date,
			ContraGroupId: &group,
			ContraType:    &ct,
			ContraSource:  &source,
			ContraTarget:  &target,
		}
	}
	return []models.Transaction{
		mk(id1, paymentKind, source),
		mk(id2, receiptKind, target),
	}
}

func TestRunningBalanceAscending(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "500", day(1)),
		bankTxn(2, models.TransactionKindBankPayment, "HDFC", "200", day(2)),
	}

	view, err := BuildView(snapshot, ViewConfig{
		Scope:       models.LedgerScopeBank,
		Order:       models.SortOrderAsc,
		ShowBalance: true,
	})
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}

	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(view.Rows))
	}
	if view.Rows[0].Balance == nil || !view.Rows[0].Balance.Equal(amt("500")) {
		t.Fatalf("first balance = %v, want 500", view.Rows[0].Balance)
	}
	if view.Rows[1].Balance == nil || !view.Rows[1].Balance.Equal(amt("300")) {
		t.Fatalf("second balance = %v, want 300", view.Rows[1].Balance)
	}
}

func TestRunningBalanceIndependentOfDisplayOrder(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "500", day(1)),
		bankTxn(2, models.TransactionKindBankPayment, "HDFC", "200", day(2)),
		bankTxn(3, models.TransactionKindBankReceipt, "HDFC", "50", day(3)),
	}

	asc, err := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeBank, Order: models.SortOrderAsc, ShowBalance: true})
	if err != nil {
		t.Fatalf("BuildView asc: %v", err)
	}
	desc, err := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeBank, Order: models.SortOrderDesc, ShowBalance: true})
	if err != nil {
		t.Fatalf("BuildView desc: %v", err)
	}

	balancesById := func(v *View) map[int]decimal.Decimal {
		m := map[int]decimal.Decimal{}
		for _, r := range v.Rows {
			m[r.Transaction.ID] = *r.Balance
		}
		return m
	}
	ascBal, descBal := balancesById(asc), balancesById(desc)
	for id, want := range ascBal {
		if !descBal[id].Equal(want) {
			t.Fatalf("txn %d balance differs by display order: asc %s desc %s", id, want, descBal[id])
		}
	}
	// display order itself must flip
	if asc.Rows[0].Transaction.ID != 1 || desc.Rows[0].Transaction.ID != 3 {
		t.Fatalf("display order wrong: asc first %d, desc first %d", asc.Rows[0].Transaction.ID, desc.Rows[0].Transaction.ID)
	}
}

func TestScopeFilters(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "100", day(1)),
		bankTxn(2, models.TransactionKindCashReceipt, "Cash", "75", day(2)),
	}

	bank, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeBank})
	if len(bank.Rows) != 1 || bank.Rows[0].Transaction.ID != 1 {
		t.Fatalf("bank scope should keep only bank kinds")
	}

	cash, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeCash})
	if len(cash.Rows) != 1 || cash.Rows[0].Transaction.ID != 2 {
		t.Fatalf("cash scope should keep only cash kinds")
	}

	all, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeAll})
	if len(all.Rows) != 2 {
		t.Fatalf("all scope should keep everything, got %d", len(all.Rows))
	}
}

func TestBankNameFilter(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "100", day(1)),
		bankTxn(2, models.TransactionKindBankReceipt, "ICICI", "200", day(2)),
	}

	view, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeBank, BankName: "ICICI"})
	if len(view.Rows) != 1 || view.Rows[0].Transaction.BankName != "ICICI" {
		t.Fatalf("bank filter failed")
	}

	view, _ = BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeBank, BankName: "all"})
	if len(view.Rows) != 2 {
		t.Fatalf("bank filter 'all' should disable filtering")
	}
}

func TestDateRangeInclusiveDayBounds(t *testing.T) {
	to := time.Date(2024, 4, 10, 23, 59, 59, 999000000, time.UTC)
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	atBound := bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "100", to)
	justAfter := bankTxn(2, models.TransactionKindBankReceipt, "HDFC", "100", to.Add(time.Millisecond))
	undated := bankTxn(3, models.TransactionKindBankReceipt, "HDFC", "100", time.Time{})

	view, _ := BuildView([]models.Transaction{atBound, justAfter, undated}, ViewConfig{
		Scope: models.LedgerScopeBank,
		From:  &from,
		To:    &to,
	})

	ids := map[int]bool{}
	for _, r := range view.Rows {
		ids[r.Transaction.ID] = true
	}
	if !ids[1] {
		t.Fatalf("transaction at the inclusive bound must be included")
	}
	if ids[2] {
		t.Fatalf("transaction after the bound must be excluded")
	}
	if !ids[3] {
		t.Fatalf("transactions without a date are never excluded by the range filter")
	}
}

func TestCondenseContra(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "Bank A", "100", day(1)),
	}
	snapshot = append(snapshot, contraPair(2, 3, "group-1", "Bank A", "Bank B", "1000", day(2))...)

	view, err := BuildView(snapshot, ViewConfig{
		Scope:          models.LedgerScopeBank,
		Order:          models.SortOrderAsc,
		CondenseContra: true,
		ShowBalance:    true,
	})
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}

	if len(view.Rows) != 2 {
		t.Fatalf("expected 1 regular + 1 condensed row, got %d", len(view.Rows))
	}
	group := view.Rows[1]
	if !group.IsContraGroup {
		t.Fatalf("second row should be the condensed transfer")
	}
	if group.Label != "Transfer" {
		t.Fatalf("bank-bank condensed label = %s, want Transfer", group.Label)
	}
	if group.ContraSource != "Bank A" || group.ContraTarget != "Bank B" {
		t.Fatalf("condensed endpoints = %s -> %s", group.ContraSource, group.ContraTarget)
	}
	if !group.ReceiptAmount.Equal(amt("1000")) || !group.PaymentAmount.Equal(amt("1000")) {
		t.Fatalf("condensed amounts = %s / %s, want 1000 / 1000", group.ReceiptAmount, group.PaymentAmount)
	}
	// condensed views never show a running balance
	for _, r := range view.Rows {
		if r.Balance != nil {
			t.Fatalf("condensed view must not carry running balances")
		}
	}
}

func TestCondenseIdempotent(t *testing.T) {
	snapshot := contraPair(1, 2, "group-1", "Cash", "HDFC", "300", day(1))
	snapshot = append(snapshot, bankTxn(3, models.TransactionKindBankReceipt, "HDFC", "50", day(2)))

	once, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeAll, CondenseContra: true})
	twice, _ := BuildView(snapshot, ViewConfig{Scope: models.LedgerScopeAll, CondenseContra: true})

	if len(once.Rows) != len(twice.Rows) {
		t.Fatalf("condensing is not stable: %d vs %d rows", len(once.Rows), len(twice.Rows))
	}
	for i := range once.Rows {
		a, b := once.Rows[i], twice.Rows[i]
		if a.IsContraGroup != b.IsContraGroup || a.GroupId != b.GroupId ||
			!a.ReceiptAmount.Equal(b.ReceiptAmount) || !a.PaymentAmount.Equal(b.PaymentAmount) {
			t.Fatalf("row %d differs between runs", i)
		}
	}
}

func TestDeletedContraGroupVanishes(t *testing.T) {
	regular := bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "50", day(1))
	withGroup := append([]models.Transaction{regular}, contraPair(2, 3, "group-1", "HDFC", "Cash", "400", day(2))...)
	withoutGroup := []models.Transaction{regular}

	condensed, _ := BuildView(withoutGroup, ViewConfig{Scope: models.LedgerScopeAll, CondenseContra: true})
	for _, r := range condensed.Rows {
		if r.IsContraGroup {
			t.Fatalf("deleted group must not appear in condensed view")
		}
	}

	expanded, _ := BuildView(withoutGroup, ViewConfig{Scope: models.LedgerScopeAll})
	if len(expanded.Rows) != 1 {
		t.Fatalf("deleted group legs must not appear individually, got %d rows", len(expanded.Rows))
	}

	// sanity: the group was visible before deletion
	before, _ := BuildView(withGroup, ViewConfig{Scope: models.LedgerScopeAll, CondenseContra: true})
	found := false
	for _, r := range before.Rows {
		if r.IsContraGroup && r.GroupId == "group-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the transfer before deletion")
	}
}

func TestIntegrityWarningsNonFatal(t *testing.T) {
	bad := bankTxn(1, models.TransactionKind("wire"), "HDFC", "100", day(1))
	good := bankTxn(2, models.TransactionKindBankReceipt, "HDFC", "100", day(2))

	view, err := BuildView([]models.Transaction{bad, good}, ViewConfig{
		Scope:       models.LedgerScopeAll,
		ShowBalance: true,
	})
	if err != nil {
		t.Fatalf("integrity issues must not abort the view: %v", err)
	}
	if len(view.Warnings) != 1 || view.Warnings[0].TransactionId != 1 {
		t.Fatalf("expected one warning for transaction 1, got %+v", view.Warnings)
	}
	// flagged record contributes zero to the balance
	for _, r := range view.Rows {
		if r.Transaction.ID == 2 && !r.Balance.Equal(amt("100")) {
			t.Fatalf("balance after flagged record = %s, want 100", r.Balance)
		}
	}
}

func TestStrictAmountIntegrity(t *testing.T) {
	t.Setenv("STRICT_AMOUNT_INTEGRITY", "true")

	bad := bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "-5", day(1))
	_, err := BuildView([]models.Transaction{bad}, ViewConfig{Scope: models.LedgerScopeAll})
	if err == nil {
		t.Fatalf("strict mode must turn integrity warnings into errors")
	}
}

func TestEmptySnapshot(t *testing.T) {
	view, err := BuildView(nil, ViewConfig{Scope: models.LedgerScopeAll, ShowBalance: true})
	if err != nil {
		t.Fatalf("empty snapshot must not error: %v", err)
	}
	if len(view.Rows) != 0 {
		t.Fatalf("empty snapshot yields empty rows")
	}
}
