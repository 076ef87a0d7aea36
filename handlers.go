package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/ledger"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/store"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// respondError maps domain errors to HTTP statuses. A partial transfer
// failure reports the orphaned leg so the caller can trigger cleanup.
func respondError(c *gin.Context, err error) {
	var partial *utils.PartialTransferFailure
	if errors.As(err, &partial) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":         "transfer partially applied",
			"group_id":      partial.GroupId,
			"orphan_leg_id": partial.OrphanLegId,
			"detail":        partial.Error(),
		})
		return
	}
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func signinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}
		info, err := models.Signin(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func listMasterAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category, err := models.ParseAccountCategory(c.Query("category"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		accounts, err := models.GetMasterAccounts(c.Request.Context(), category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func createMasterAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMasterAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.CreateMasterAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func updateMasterAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewMasterAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.UpdateMasterAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func deleteMasterAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		account, err := models.DeleteMasterAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

type toggleRequest struct {
	Value *bool `json:"value" binding:"required"`
}

func toggleMasterAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
			return
		}
		account, err := models.ToggleActiveMasterAccount(c.Request.Context(), id, *req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listTransactionsHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())
		snapshot, err := adapter.Snapshot(c.Request.Context(), companyId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

func getTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		txn, err := models.GetTransaction(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, txn)
	}
}

func updateTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := models.UpdateTransaction(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func deleteTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		txn, err := models.DeleteTransaction(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func createTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContraTransfer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		legs, err := models.CreateContraTransfer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, legs)
	}
}

func getTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		legs, err := models.GetContraGroup(c.Request.Context(), c.Param("groupId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, legs)
	}
}

func updateTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContraTransfer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		legs, err := models.UpdateContraTransfer(c.Request.Context(), c.Param("groupId"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, legs)
	}
}

func deleteTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		legs, err := models.DeleteContraGroup(c.Request.Context(), c.Param("groupId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, legs)
	}
}

// viewConfigFromQuery builds a view selection from query params, widening
// from/to to whole days in the company's timezone.
func viewConfigFromQuery(c *gin.Context) (*ledger.ViewConfig, error) {
	cfg := ledger.ViewConfig{
		Scope:          models.LedgerScopeAll,
		Order:          models.SortOrderAsc,
		CondenseContra: false,
		ShowBalance:    true,
	}

	if s := c.Query("scope"); s != "" {
		scope, err := models.ParseLedgerScope(s)
		if err != nil {
			return nil, utils.NewValidationError("%s", err.Error())
		}
		cfg.Scope = scope
	}
	cfg.BankName = c.Query("bank")
	if s := c.Query("account"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id <= 0 {
			return nil, utils.NewValidationError("account must be a positive id")
		}
		cfg.AccountId = id
	}
	if s := c.Query("order"); s != "" {
		order, err := models.ParseSortOrder(s)
		if err != nil {
			return nil, utils.NewValidationError("%s", err.Error())
		}
		cfg.Order = order
	}
	if s := c.Query("condense"); s != "" {
		cfg.CondenseContra = strings.EqualFold(s, "true") || s == "1"
	}
	if s := c.Query("balance"); s != "" {
		cfg.ShowBalance = strings.EqualFold(s, "true") || s == "1"
	}

	companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())
	timezone := models.CompanyTimezone(c.Request.Context(), companyId)

	if s := c.Query("from"); s != "" {
		from, err := parseDateParam(s)
		if err != nil {
			return nil, err
		}
		if err := from.StartOfDayUTCTime(timezone); err != nil {
			return nil, utils.NewValidationError("invalid from date")
		}
		t := time.Time(*from)
		cfg.From = &t
	}
	if s := c.Query("to"); s != "" {
		to, err := parseDateParam(s)
		if err != nil {
			return nil, err
		}
		if err := to.EndOfDayUTCTime(timezone); err != nil {
			return nil, utils.NewValidationError("invalid to date")
		}
		t := time.Time(*to)
		cfg.To = &t
	}
	return &cfg, nil
}

func parseDateParam(s string) (*models.DateString, error) {
	var d models.DateString
	quoted, _ := json.Marshal(s)
	if err := d.UnmarshalJSON(quoted); err != nil {
		return nil, utils.NewValidationError("dates must look like 2006-01-02")
	}
	return &d, nil
}

func booksViewHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := viewConfigFromQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())
		snapshot, err := adapter.Snapshot(c.Request.Context(), companyId)
		if err != nil {
			respondError(c, err)
			return
		}
		view, err := ledger.BuildView(snapshot, *cfg)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(view.Warnings) > 0 {
			config.LogWarn(config.GetLogger(), "handlers", "booksViewHandler", "integrity warnings in view", view.Warnings)
		}
		c.JSON(http.StatusOK, view)
	}
}

// booksStreamHandler streams recomputed views over SSE whenever the
// company's books change. The first event carries the current view.
func booksStreamHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := viewConfigFromQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())

		views := make(chan *ledger.View, 1)
		sub, err := adapter.Subscribe(c.Request.Context(), companyId, func(snapshot []models.Transaction) {
			view, buildErr := ledger.BuildView(snapshot, *cfg)
			if buildErr != nil {
				logger := config.GetLogger()
				config.LogError(logger, "handlers", "booksStreamHandler", "build view", companyId, buildErr)
				return
			}
			// drop the stale pending view, keep only the latest
			select {
			case <-views:
			default:
			}
			views <- view
		})
		if err != nil {
			respondError(c, err)
			return
		}
		defer sub.Close()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case view := <-views:
				c.SSEvent("view", view)
				return true
			}
		})
	}
}

// trialBalanceResponse shapes the report for clients: only the touched
// rows are listed, totals run over those.
type trialBalanceResponse struct {
	Rows        []ledger.TrialBalanceRow  `json:"rows"`
	TotalDebit  string                    `json:"total_debit"`
	TotalCredit string                    `json:"total_credit"`
	Imbalance   string                    `json:"imbalance"`
	Warnings    []ledger.IntegrityWarning `json:"warnings,omitempty"`
}

func buildTrialBalanceForCompany(c *gin.Context, adapter *store.Adapter) (*ledger.TrialBalance, error) {
	ctx, span := tracer.Start(c.Request.Context(), "trial-balance")
	defer span.End()
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	snapshot, err := adapter.Snapshot(ctx, companyId)
	if err != nil {
		return nil, err
	}
	seeds := []ledger.Seed{}
	for _, category := range models.MasterCategories {
		masters, err := models.GetMasterAccounts(ctx, category)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, ledger.SeedsFromMasters(masters)...)
	}
	return ledger.BuildTrialBalance(snapshot, seeds)
}

func trialBalanceHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tb, err := buildTrialBalanceForCompany(c, adapter)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(tb.Warnings) > 0 {
			config.LogWarn(config.GetLogger(), "handlers", "trialBalanceHandler", "integrity warnings in trial balance", tb.Warnings)
		}
		c.JSON(http.StatusOK, trialBalanceResponse{
			Rows:        tb.DisplayRows(),
			TotalDebit:  tb.TotalDebit.String(),
			TotalCredit: tb.TotalCredit.String(),
			Imbalance:   tb.Imbalance().String(),
			Warnings:    tb.Warnings,
		})
	}
}

func trialBalanceExportHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tb, err := buildTrialBalanceForCompany(c, adapter)
		if err != nil {
			respondError(c, err)
			return
		}

		f := excelize.NewFile()
		sheet := "Sheet1"
		f.SetCellValue(sheet, "A1", "Category")
		f.SetCellValue(sheet, "B1", "Account")
		f.SetCellValue(sheet, "C1", "Debit")
		f.SetCellValue(sheet, "D1", "Credit")

		rows := tb.DisplayRows()
		for i, row := range rows {
			n := fmt.Sprint(i + 2)
			f.SetCellValue(sheet, "A"+n, string(row.Category))
			f.SetCellValue(sheet, "B"+n, row.Name)
			f.SetCellValue(sheet, "C"+n, row.Debit.String())
			f.SetCellValue(sheet, "D"+n, row.Credit.String())
		}
		n := fmt.Sprint(len(rows) + 2)
		f.SetCellValue(sheet, "B"+n, "Total")
		f.SetCellValue(sheet, "C"+n, tb.TotalDebit.String())
		f.SetCellValue(sheet, "D"+n, tb.TotalCredit.String())

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=trial-balance.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}

// datewiseReportHandler combines the date-bounded books view with the
// payables and receivables falling due in the same window.
func datewiseReportHandler(adapter *store.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := viewConfigFromQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		companyId, _ := utils.GetCompanyIdFromContext(ctx)
		snapshot, err := adapter.Snapshot(ctx, companyId)
		if err != nil {
			respondError(c, err)
			return
		}
		view, err := ledger.BuildView(snapshot, *cfg)
		if err != nil {
			respondError(c, err)
			return
		}

		payables, err := models.GetPayables(ctx, false)
		if err != nil {
			respondError(c, err)
			return
		}
		receivables, err := models.GetReceivables(ctx, false)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"view":        view,
			"payables":    recordedInRange(payables, cfg.From, cfg.To, func(p *models.Payable) time.Time { return p.CreatedAt }),
			"receivables": recordedInRange(receivables, cfg.From, cfg.To, func(r *models.Receivable) time.Time { return r.CreatedAt }),
		})
	}
}

// recordedInRange keeps items recorded inside the inclusive window. The
// settled flag plays no part: settled and open items alike belong to the
// day they were recorded on.
func recordedInRange[T any](items []T, from *time.Time, to *time.Time, recordedAt func(T) time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		recorded := recordedAt(item)
		if from != nil && recorded.Before(*from) {
			continue
		}
		if to != nil && recorded.After(*to) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func listPayablesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyOpen := strings.EqualFold(c.Query("open"), "true") || c.Query("open") == "1"
		payables, err := models.GetPayables(c.Request.Context(), onlyOpen)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payables)
	}
}

func createPayableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayable
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payable, err := models.CreatePayable(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payable)
	}
}

func updatePayableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPayable
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payable, err := models.UpdatePayable(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payable)
	}
}

func deletePayableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payable, err := models.DeletePayable(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payable)
	}
}

func togglePayableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
			return
		}
		payable, err := models.ToggleSettledPayable(c.Request.Context(), id, *req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payable)
	}
}

func listReceivablesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyOpen := strings.EqualFold(c.Query("open"), "true") || c.Query("open") == "1"
		receivables, err := models.GetReceivables(c.Request.Context(), onlyOpen)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receivables)
	}
}

func createReceivableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReceivable
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		receivable, err := models.CreateReceivable(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, receivable)
	}
}

func updateReceivableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewReceivable
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		receivable, err := models.UpdateReceivable(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receivable)
	}
}

func deleteReceivableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		receivable, err := models.DeleteReceivable(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receivable)
	}
}

func toggleReceivableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
			return
		}
		receivable, err := models.ToggleSettledReceivable(c.Request.Context(), id, *req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receivable)
	}
}
