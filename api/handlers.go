/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Companies:
    GET    /api/companies                 List companies
    POST   /api/companies                 Create/update company
    GET    /api/companies/{id}            Get company

  Contracts:
    GET    /api/contracts                 List contracts (?status=active)
    POST   /api/contracts                 Create/update contract
    GET    /api/contracts/{id}            Get contract
    GET    /api/contracts/{id}/history    Amendment history (?type=amount)
    POST   /api/contracts/{id}/history    Record an amendment

  Billings:
    POST   /api/billings/generate         Generate a month's drafts
    GET    /api/billings                  List a month (?year=&month=&status=)
    GET    /api/billings/{id}             Get invoice
    POST   /api/billings/{id}/confirm     draft -> confirmed
    POST   /api/billings/{id}/lock        confirmed -> locked
    POST   /api/billings/{id}/cancel      any non-locked -> cancelled
    PUT    /api/billings/{id}/override    Manual corrections
    POST   /api/billings/{id}/validate    Re-run the warning battery
    GET    /api/billings/{id}/entries     Outsourcing entries
    POST   /api/billings/{id}/entries     Add entry (recomputes profit)
    GET    /api/billings/check-duplicate  ?contract_id=&year=&month=

  Reports:
    GET    /api/reports/warnings          ?year=&month=
    GET    /api/reports/missing           ?year=&month=
    GET    /api/reports/monthly           ?year=&month=&warehouse=
    GET    /api/reports/yearly            ?year=&warehouse=

  Holidays:
    GET    /api/holidays                  ?year=
    POST   /api/holidays                  Register holiday
    DELETE /api/holidays/{id}             Remove holiday

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate billing, locked invoice, bad transition)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.Store
	Generator *billing.Generator
	log       zerolog.Logger
}

// NewHandler creates a handler over the store.
func NewHandler(store billing.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Generator: billing.NewGenerator(store, log),
		log:       log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns all companies.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, len(companies))
	for i := range companies {
		dtos[i] = toCompanyDTO(&companies[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCompany returns one company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := billing.CompanyID(chi.URLParam(r, "id"))
	company, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get company", err)
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(company))
}

// SaveCompany creates or updates a company.
func (h *Handler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	var req SaveCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	company := &billing.Company{
		ID:            billing.CompanyID(req.ID),
		Code:          req.Code,
		Name:          req.Name,
		Type:          billing.CompanyType(req.Type),
		WarehouseCode: req.WarehouseCode,
		IsActive:      true,
	}
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}

	if err := h.Store.SaveCompany(r.Context(), company); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(company))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns contracts, optionally filtered by status.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	var statuses []billing.ContractStatus
	if s := r.URL.Query().Get("status"); s != "" {
		statuses = append(statuses, billing.ContractStatus(s))
	}

	contracts, err := h.Store.ListContracts(r.Context(), statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}
	dtos := make([]ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = toContractDTO(&contracts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns one contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	contract, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if contract == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(contract))
}

// SaveContract creates or updates a contract.
func (h *Handler) SaveContract(w http.ResponseWriter, r *http.Request) {
	var req SaveContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contract, err := contractFromRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return
	}

	if err := h.Store.SaveContract(r.Context(), contract); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(contract))
}

func contractFromRequest(req *SaveContractRequest) (*billing.Contract, error) {
	if req.CompanyID == "" || req.ItemName == "" {
		return nil, errRequired("company_id, item_name")
	}

	amount := decimal.Zero
	if req.MonthlyAmount != "" {
		var err error
		if amount, err = decimal.NewFromString(req.MonthlyAmount); err != nil {
			return nil, err
		}
	}
	outsourcing := decimal.Zero
	if req.OutsourcingAmount != "" {
		var err error
		if outsourcing, err = decimal.NewFromString(req.OutsourcingAmount); err != nil {
			return nil, err
		}
	}

	start, err := parseDatePtr(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDatePtr(req.EndDate)
	if err != nil {
		return nil, err
	}

	cycle := billing.BillingCycle(req.BillingCycle)
	if cycle == "" {
		cycle = billing.CycleMonthly
	}
	status := billing.ContractStatus(req.Status)
	if status == "" {
		status = billing.ContractActive
		if start == nil && end == nil {
			status = billing.ContractPeriodUndefined
		}
	}

	contract := &billing.Contract{
		ID:                  billing.ContractID(req.ID),
		CompanyID:           billing.CompanyID(req.CompanyID),
		ItemName:            req.ItemName,
		Start:               start,
		End:                 end,
		MonthlyAmount:       amount,
		Cycle:               cycle,
		BillingMonths:       req.BillingMonths,
		Timing:              req.BillingTiming,
		AutoRenewal:         req.AutoRenewal,
		RenewalPeriodMonths: req.RenewalPeriodMonths,
		ReverseBilling:      req.ReverseBilling,
		OutsourcingAmount:   outsourcing,
		OutsourcingZero:     req.OutsourcingZero,
		Status:              status,
		Notes:               req.Notes,
	}
	if req.OutsourcingCompanyID != nil && *req.OutsourcingCompanyID != "" {
		cid := billing.CompanyID(*req.OutsourcingCompanyID)
		contract.OutsourcingCompanyID = &cid
	}
	return contract, nil
}

// ListHistory returns a contract's amendment history for one change type.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	changeType := billing.ChangeType(r.URL.Query().Get("type"))
	if changeType == "" {
		changeType = billing.ChangeAmount
	}

	entries, err := h.Store.ListHistory(r.Context(), id, changeType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history", err)
		return
	}
	dtos := make([]HistoryDTO, len(entries))
	for i := range entries {
		dtos[i] = toHistoryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddHistory records an amendment against a contract.
func (h *Handler) AddHistory(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))

	var req AddHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	effective, err := billing.ParseDate(req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_date (use YYYY-MM-DD)", err)
		return
	}

	entry := &billing.ContractHistory{
		ContractID:    id,
		Type:          billing.ChangeType(req.ChangeType),
		EffectiveDate: effective,
		Reason:        req.Reason,
		CreatedBy:     req.CreatedBy,
	}
	if entry.OldAmount, err = parseDecimalPtr(req.OldAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid old_amount", err)
		return
	}
	if entry.NewAmount, err = parseDecimalPtr(req.NewAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_amount", err)
		return
	}

	if err := h.Store.AddHistory(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add history", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHistoryDTO(entry))
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// GenerateBillings runs a generation pass for a month. With save=true the
// drafts are persisted in the same call.
func (h *Handler) GenerateBillings(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	drafts, report, err := h.Generator.GenerateMonth(r.Context(), req.Year, req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Generation failed", err)
		return
	}

	if req.Save {
		saveReport, err := h.Generator.SaveBillings(r.Context(), drafts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save billings", err)
			return
		}
		report.SkippedDuplicate += saveReport.SkippedDuplicate
		report.Failed = append(report.Failed, saveReport.Failed...)
	}

	dtos := make([]BillingDTO, len(drafts))
	for i, d := range drafts {
		dtos[i] = toBillingDTO(d)
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Report: report, Billings: dtos})
}

// ListBillings returns a month's invoices.
func (h *Handler) ListBillings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	status := billing.BillingStatus(r.URL.Query().Get("status"))

	billings, err := h.Store.ListBillingsForMonth(r.Context(), year, month, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list billings", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTOs(billings))
}

// GetBilling returns one invoice.
func (h *Handler) GetBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))
	b, err := h.Store.GetBilling(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get billing", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "Billing not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// ConfirmBilling moves a draft invoice to confirmed.
func (h *Handler) ConfirmBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))
	b, err := h.Generator.Confirm(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to confirm billing", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// LockBilling moves a confirmed invoice to locked.
func (h *Handler) LockBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))

	var req LockRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	b, err := h.Generator.Lock(r.Context(), id, req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to lock billing", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// CancelBilling moves a non-locked invoice to cancelled.
func (h *Handler) CancelBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))
	b, err := h.Generator.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to cancel billing", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// OverrideBilling applies manual corrections to a non-locked invoice.
func (h *Handler) OverrideBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	domainReq := billing.OverrideRequest{Notes: req.Notes}
	var err error
	if domainReq.Amount, err = parseDecimalPtr(req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	if domainReq.SalesDate, err = parseDatePtr(req.SalesDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sales_date", err)
		return
	}
	if domainReq.RequestDate, err = parseDatePtr(req.RequestDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request_date", err)
		return
	}

	b, err := h.Generator.Override(r.Context(), id, domainReq)
	if err != nil {
		writeDomainError(w, "Failed to override billing", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// RevalidateBilling re-runs the warning battery against one invoice. The
// refreshed warnings are persisted unless the invoice is locked.
func (h *Handler) RevalidateBilling(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))

	b, err := h.Store.GetBilling(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get billing", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "Billing not found", nil)
		return
	}
	contract, err := h.Store.GetContract(r.Context(), b.ContractID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if contract == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	warnings, err := h.Generator.Validator().ValidateBilling(r.Context(), b, contract)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation failed", err)
		return
	}
	b.SetWarnings(warnings)
	if !b.Locked() {
		if err := h.Store.UpdateBilling(r.Context(), b); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save warnings", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toBillingDTO(b))
}

// CheckDuplicate reports the existing non-cancelled invoice for a contract
// and month, if any.
func (h *Handler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	contractID := billing.ContractID(r.URL.Query().Get("contract_id"))
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	if contractID == "" {
		writeError(w, http.StatusBadRequest, "contract_id is required", nil)
		return
	}

	existing, err := h.Generator.CheckDuplicate(r.Context(), contractID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Duplicate check failed", err)
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusOK, map[string]any{"duplicate": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"duplicate": true,
		"billing":   toBillingDTO(existing),
	})
}

// =============================================================================
// OUTSOURCING ENTRY HANDLERS
// =============================================================================

// ListEntries returns an invoice's outsourcing entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))
	entries, err := h.Store.ListEntries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddEntry records a subcontractor purchase and recomputes the invoice's
// outsourcing amount and profit.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	id := billing.BillingID(chi.URLParam(r, "id"))

	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	purchaseDate, err := parseDatePtr(req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchase_date", err)
		return
	}

	// Locked invoices reject entry changes before anything is written.
	b, err := h.Store.GetBilling(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get billing", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "Billing not found", nil)
		return
	}
	if b.Locked() {
		writeDomainError(w, "Failed to add entry", billing.ErrBillingLocked)
		return
	}

	entry := &billing.OutsourcingEntry{
		BillingID:    id,
		CompanyID:    billing.CompanyID(req.CompanyID),
		Amount:       amount,
		PurchaseDate: purchaseDate,
		Notes:        req.Notes,
	}
	if err := h.Store.AddEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add entry", err)
		return
	}

	if _, err := h.Generator.RefreshOutsourcing(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to refresh billing", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// DeleteEntry removes an entry and recomputes the invoice.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	billingID := billing.BillingID(chi.URLParam(r, "id"))
	entryID := billing.EntryID(chi.URLParam(r, "entryID"))

	if err := h.Store.DeleteEntry(r.Context(), entryID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete entry", err)
		return
	}
	if _, err := h.Generator.RefreshOutsourcing(r.Context(), billingID); err != nil {
		writeDomainError(w, "Failed to refresh billing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthWarnings returns every warning in a month, company-annotated.
func (h *Handler) MonthWarnings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	warnings, err := h.Generator.Validator().WarningsForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to collect warnings", err)
		return
	}
	if warnings == nil {
		warnings = []billing.MonthWarning{}
	}
	writeJSON(w, http.StatusOK, warnings)
}

// MissingBillings returns contracts that should be billed this month but
// have no non-cancelled invoice.
func (h *Handler) MissingBillings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	missing, err := h.Generator.Validator().MissingBillings(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to find missing billings", err)
		return
	}
	dtos := make([]ContractDTO, len(missing))
	for i := range missing {
		dtos[i] = toContractDTO(&missing[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlyReport aggregates a month's totals, broken down by warehouse.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	summary, err := h.Generator.Calculator().MonthlySummary(r.Context(), year, month, r.URL.Query().Get("warehouse"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build monthly report", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// YearlyReport aggregates a year's totals by month.
func (h *Handler) YearlyReport(w http.ResponseWriter, r *http.Request) {
	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	summary, err := h.Generator.Calculator().YearlySummary(r.Context(), year, r.URL.Query().Get("warehouse"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build yearly report", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns a year's holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{ID: hd.ID, Date: hd.Date.String(), Name: hd.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday registers a holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req SaveHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	holiday := &billing.Holiday{Date: date, Name: req.Name}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{ID: holiday.ID, Date: holiday.Date.String(), Name: holiday.Name})
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func yearMonthParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, ok := intParam(w, r, "year")
	if !ok {
		return 0, 0, false
	}
	month, ok := intParam(w, r, "month")
	if !ok {
		return 0, 0, false
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12", nil)
		return 0, 0, false
	}
	return year, month, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" query parameter is required", err)
		return 0, false
	}
	return v, true
}

func parseDatePtr(s *string) (*billing.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := billing.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type requiredError string

func errRequired(fields string) error { return requiredError(fields) }

func (e requiredError) Error() string { return string(e) + " are required" }
