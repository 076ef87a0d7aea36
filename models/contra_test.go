package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/shopspring/decimal"
)

type fakeLegWriter struct {
	created      []*Transaction
	deleted      []*Transaction
	failCreateAt int // fail the Nth create (1-based), 0 = never
	failDelete   bool
	nextId       int
}

func (w *fakeLegWriter) CreateLeg(ctx context.Context, leg *Transaction) error {
	if w.failCreateAt > 0 && len(w.created)+1 == w.failCreateAt {
		return utils.ErrorStoreUnavailable
	}
	w.nextId++
	leg.ID = w.nextId
	w.created = append(w.created, leg)
	return nil
}

func (w *fakeLegWriter) DeleteLeg(ctx context.Context, leg *Transaction) error {
	if w.failDelete {
		return utils.ErrorStoreUnavailable
	}
	w.deleted = append(w.deleted, leg)
	return nil
}

func testTransferLegs(t *testing.T) (*Transaction, *Transaction) {
	t.Helper()
	date := DateString(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	input := &NewContraTransfer{
		Amount: "1000",
		Source: "Bank A",
		Target: "Bank B",
		Date:   &date,
	}
	v := &validatedTransfer{
		amount:     decimal.NewFromInt(1000),
		date:       time.Time(date),
		contraType: ContraTypeBankToBank,
	}
	return buildContraLegs("company-1", "group-1", input, v)
}

func TestBuildContraLegs(t *testing.T) {
	payment, receipt := testTransferLegs(t)

	if payment.Kind != TransactionKindBankPayment {
		t.Fatalf("payment leg kind = %s, want bank_payment", payment.Kind)
	}
	if receipt.Kind != TransactionKindBankReceipt {
		t.Fatalf("receipt leg kind = %s, want bank_receipt", receipt.Kind)
	}
	if payment.BankName != "Bank A" || receipt.BankName != "Bank B" {
		t.Fatalf("legs post against wrong books: %s / %s", payment.BankName, receipt.BankName)
	}
	if payment.AccountType != AccountCategoryContra || receipt.AccountType != AccountCategoryContra {
		t.Fatalf("both legs must be contra-typed")
	}
	if !payment.Amount.Equal(receipt.Amount) {
		t.Fatalf("leg amounts differ: %s vs %s", payment.Amount, receipt.Amount)
	}
	if *payment.ContraGroupId != *receipt.ContraGroupId {
		t.Fatalf("legs must share a contra group id")
	}
	if *payment.ContraType != ContraTypeBankToBank {
		t.Fatalf("contra type = %s, want bank-bank", *payment.ContraType)
	}
	if *payment.ContraSource != "Bank A" || *payment.ContraTarget != "Bank B" {
		t.Fatalf("contra endpoints wrong: %s -> %s", *payment.ContraSource, *payment.ContraTarget)
	}
}

func TestBuildContraLegsCashKinds(t *testing.T) {
	date := DateString(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	input := &NewContraTransfer{
		Amount: "250",
		Source: "Cash",
		Target: "HDFC",
		Date:   &date,
	}
	v := &validatedTransfer{
		amount:     decimal.NewFromInt(250),
		date:       time.Time(date),
		contraType: ContraTypeCashToBank,
	}
	payment, receipt := buildContraLegs("company-1", "group-2", input, v)

	if payment.Kind != TransactionKindCashPayment {
		t.Fatalf("cash source should produce cash_payment, got %s", payment.Kind)
	}
	if receipt.Kind != TransactionKindBankReceipt {
		t.Fatalf("bank target should produce bank_receipt, got %s", receipt.Kind)
	}
	if (*payment.ContraType).Label() != "Deposit" {
		t.Fatalf("cash-bank label = %s, want Deposit", (*payment.ContraType).Label())
	}
}

func TestRunContraSagaBothLegsSucceed(t *testing.T) {
	payment, receipt := testTransferLegs(t)
	writer := &fakeLegWriter{}

	if err := runContraSaga(context.Background(), writer, payment, receipt); err != nil {
		t.Fatalf("saga failed: %v", err)
	}
	if len(writer.created) != 2 {
		t.Fatalf("expected 2 created legs, got %d", len(writer.created))
	}
	if len(writer.deleted) != 0 {
		t.Fatalf("no compensation expected, got %d deletes", len(writer.deleted))
	}
}

func TestRunContraSagaSecondLegFailsCompensates(t *testing.T) {
	payment, receipt := testTransferLegs(t)
	writer := &fakeLegWriter{failCreateAt: 2}

	err := runContraSaga(context.Background(), writer, payment, receipt)
	if err == nil {
		t.Fatalf("expected error when second leg fails")
	}
	var partial *utils.PartialTransferFailure
	if errors.As(err, &partial) {
		t.Fatalf("compensated failure must not be reported as partial: %v", err)
	}
	if len(writer.deleted) != 1 || writer.deleted[0] != payment {
		t.Fatalf("first leg should have been compensated away")
	}
}

func TestRunContraSagaCompensationFailureIsPartial(t *testing.T) {
	payment, receipt := testTransferLegs(t)
	writer := &fakeLegWriter{failCreateAt: 2, failDelete: true}

	err := runContraSaga(context.Background(), writer, payment, receipt)
	var partial *utils.PartialTransferFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialTransferFailure, got %v", err)
	}
	if partial.GroupId != "group-1" {
		t.Fatalf("partial failure group = %s, want group-1", partial.GroupId)
	}
	if partial.OrphanLegId != "1" {
		t.Fatalf("partial failure must name the orphaned leg, got %q", partial.OrphanLegId)
	}
}

func TestRunContraSagaCompensationDisabled(t *testing.T) {
	t.Setenv("DISABLE_CONTRA_COMPENSATION", "true")

	payment, receipt := testTransferLegs(t)
	writer := &fakeLegWriter{failCreateAt: 2}

	err := runContraSaga(context.Background(), writer, payment, receipt)
	var partial *utils.PartialTransferFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialTransferFailure when compensation disabled, got %v", err)
	}
	if len(writer.deleted) != 0 {
		t.Fatalf("compensation disabled but delete was attempted")
	}
}
