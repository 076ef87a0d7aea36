package ledger

import (
	"testing"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
)

func TestTrialBalanceSeededZero(t *testing.T) {
	seeds := []Seed{
		{Category: models.AccountCategoryBank, Name: "HDFC"},
		{Category: models.AccountCategoryExpense, Name: "Rent"},
	}

	tb, err := BuildTrialBalance(nil, seeds)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}

	// the seeded accounts plus the fixed cash books, all at zero
	if len(tb.Rows) != 2+len(models.CashAccountNames) {
		t.Fatalf("expected %d seeded rows, got %d", 2+len(models.CashAccountNames), len(tb.Rows))
	}
	for _, r := range tb.Rows {
		if !r.Debit.IsZero() || !r.Credit.IsZero() {
			t.Fatalf("seeded row %s/%s should be zero", r.Category, r.Name)
		}
	}
	if len(tb.DisplayRows()) != 0 {
		t.Fatalf("untouched zero rows are hidden from display")
	}
	if !tb.TotalDebit.IsZero() || !tb.TotalCredit.IsZero() {
		t.Fatalf("totals = %s / %s, want 0 / 0", tb.TotalDebit, tb.TotalCredit)
	}
}

func TestTrialBalancePaymentPosting(t *testing.T) {
	seeds := []Seed{
		{Category: models.AccountCategoryBank, Name: "HDFC"},
		{Category: models.AccountCategoryExpense, Name: "Rent"},
	}
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankPayment, "HDFC", "300", day(1)),
	}

	tb, err := BuildTrialBalance(snapshot, seeds)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}

	byName := map[string]TrialBalanceRow{}
	for _, r := range tb.Rows {
		byName[r.Name] = r
	}

	hdfc := byName["HDFC"]
	if !hdfc.Credit.Equal(amt("300")) || !hdfc.Debit.IsZero() {
		t.Fatalf("HDFC = %s Dr / %s Cr, want 0 / 300", hdfc.Debit, hdfc.Credit)
	}
	rent := byName["Rent"]
	if !rent.Debit.Equal(amt("300")) || !rent.Credit.IsZero() {
		t.Fatalf("Rent = %s Dr / %s Cr, want 300 / 0", rent.Debit, rent.Credit)
	}

	if !tb.TotalDebit.Equal(amt("300")) || !tb.TotalCredit.Equal(amt("300")) {
		t.Fatalf("totals = %s / %s, want 300 / 300", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.Imbalance().IsZero() {
		t.Fatalf("balanced book reports imbalance %s", tb.Imbalance())
	}
}

func TestTrialBalanceReceiptPosting(t *testing.T) {
	snapshot := []models.Transaction{
		{
			ID: 1, CompanyId: "company-1", Amount: amt("800"),
			Kind: models.TransactionKindCashReceipt, BankName: "Cash",
			AccountId: 4, AccountName: "Sales", AccountType: models.AccountCategoryIncome,
			Date: day(2),
		},
	}

	tb, err := BuildTrialBalance(snapshot, nil)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}

	byKey := map[string]TrialBalanceRow{}
	for _, r := range tb.Rows {
		byKey[string(r.Category)+"/"+r.Name] = r
	}

	cash := byKey["cash/Cash"]
	if !cash.Debit.Equal(amt("800")) {
		t.Fatalf("cash receipt should debit the cash book, got %s", cash.Debit)
	}
	sales := byKey["income/Sales"]
	if !sales.Credit.Equal(amt("800")) {
		t.Fatalf("receipt should credit the income account, got %s", sales.Credit)
	}
}

func TestTrialBalanceContraSkipsCounterSide(t *testing.T) {
	snapshot := contraPair(1, 2, "group-1", "Bank A", "Bank B", "1000", day(1))
	seeds := []Seed{
		{Category: models.AccountCategoryBank, Name: "Bank A"},
		{Category: models.AccountCategoryBank, Name: "Bank B"},
	}

	tb, err := BuildTrialBalance(snapshot, seeds)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}

	byName := map[string]TrialBalanceRow{}
	for _, r := range tb.Rows {
		byName[r.Name] = r
	}
	if !byName["Bank A"].Credit.Equal(amt("1000")) {
		t.Fatalf("source bank should be credited, got %s", byName["Bank A"].Credit)
	}
	if !byName["Bank B"].Debit.Equal(amt("1000")) {
		t.Fatalf("target bank should be debited, got %s", byName["Bank B"].Debit)
	}
	// each leg posts only its own bank/cash side; no contra account rows
	for _, r := range tb.Rows {
		if r.Category == models.AccountCategoryContra {
			t.Fatalf("contra counter-accounts must not appear in the trial balance")
		}
	}
	if !tb.Imbalance().IsZero() {
		t.Fatalf("transfer should leave the book balanced, imbalance %s", tb.Imbalance())
	}
}

func TestTrialBalanceZeroAmountSkipped(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankReceipt, "HDFC", "0", day(1)),
	}

	tb, err := BuildTrialBalance(snapshot, nil)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}
	if len(tb.DisplayRows()) != 0 {
		t.Fatalf("zero-amount transactions contribute nothing")
	}
}

func TestTrialBalanceWarnsOnBadRecords(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKind("wire"), "HDFC", "100", day(1)),
		bankTxn(2, models.TransactionKindBankPayment, "HDFC", "300", day(2)),
	}

	tb, err := BuildTrialBalance(snapshot, nil)
	if err != nil {
		t.Fatalf("bad records must not abort aggregation: %v", err)
	}
	if len(tb.Warnings) != 1 || tb.Warnings[0].TransactionId != 1 {
		t.Fatalf("expected a warning for transaction 1, got %+v", tb.Warnings)
	}
	// the valid record still posts both sides
	if !tb.TotalDebit.Equal(amt("300")) || !tb.TotalCredit.Equal(amt("300")) {
		t.Fatalf("totals = %s / %s, want 300 / 300", tb.TotalDebit, tb.TotalCredit)
	}
}

func TestTrialBalanceRowsSorted(t *testing.T) {
	snapshot := []models.Transaction{
		bankTxn(1, models.TransactionKindBankPayment, "ICICI", "10", day(1)),
		bankTxn(2, models.TransactionKindBankPayment, "HDFC", "20", day(2)),
	}

	tb, err := BuildTrialBalance(snapshot, nil)
	if err != nil {
		t.Fatalf("BuildTrialBalance: %v", err)
	}
	for i := 1; i < len(tb.Rows); i++ {
		prev, cur := tb.Rows[i-1], tb.Rows[i]
		if prev.Category > cur.Category ||
			(prev.Category == cur.Category && prev.Name > cur.Name) {
			t.Fatalf("rows not sorted by (category, name): %v before %v", prev, cur)
		}
	}
}
