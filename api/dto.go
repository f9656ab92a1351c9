/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

Money travels as decimal strings, never JSON numbers: "1234567" not 1234567.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// COMPANY
// =============================================================================

// CompanyDTO represents a counterpart company in API responses.
type CompanyDTO struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	WarehouseCode string `json:"warehouse_code,omitempty"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SaveCompanyRequest is the request to create or update a company.
type SaveCompanyRequest struct {
	ID            string `json:"id,omitempty"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	WarehouseCode string `json:"warehouse_code,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

func toCompanyDTO(c *billing.Company) CompanyDTO {
	return CompanyDTO{
		ID:            string(c.ID),
		Code:          c.Code,
		Name:          c.Name,
		Type:          string(c.Type),
		WarehouseCode: c.WarehouseCode,
		IsActive:      c.IsActive,
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

// =============================================================================
// CONTRACT
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID                   string   `json:"id"`
	CompanyID            string   `json:"company_id"`
	ItemName             string   `json:"item_name"`
	StartDate            *string  `json:"start_date"`
	EndDate              *string  `json:"end_date"`
	MonthlyAmount        string   `json:"monthly_amount"`
	BillingCycle         string   `json:"billing_cycle"`
	BillingMonths        []int    `json:"billing_months,omitempty"`
	BillingTiming        string   `json:"billing_timing,omitempty"`
	AutoRenewal          bool     `json:"auto_renewal"`
	RenewalPeriodMonths  int      `json:"renewal_period_months,omitempty"`
	ReverseBilling       bool     `json:"reverse_billing"`
	OutsourcingCompanyID *string  `json:"outsourcing_company_id,omitempty"`
	OutsourcingAmount    string   `json:"outsourcing_amount"`
	OutsourcingZero      bool     `json:"outsourcing_zero"`
	Status               string   `json:"status"`
	Notes                string   `json:"notes,omitempty"`
	CreatedAt            string   `json:"created_at,omitempty"`
}

// SaveContractRequest is the request to create or update a contract.
type SaveContractRequest struct {
	ID                   string  `json:"id,omitempty"`
	CompanyID            string  `json:"company_id"`
	ItemName             string  `json:"item_name"`
	StartDate            *string `json:"start_date,omitempty"`
	EndDate              *string `json:"end_date,omitempty"`
	MonthlyAmount        string  `json:"monthly_amount"`
	BillingCycle         string  `json:"billing_cycle"`
	BillingMonths        []int   `json:"billing_months,omitempty"`
	BillingTiming        string  `json:"billing_timing,omitempty"`
	AutoRenewal          bool    `json:"auto_renewal"`
	RenewalPeriodMonths  int     `json:"renewal_period_months,omitempty"`
	ReverseBilling       bool    `json:"reverse_billing"`
	OutsourcingCompanyID *string `json:"outsourcing_company_id,omitempty"`
	OutsourcingAmount    string  `json:"outsourcing_amount,omitempty"`
	OutsourcingZero      bool    `json:"outsourcing_zero"`
	Status               string  `json:"status,omitempty"`
	Notes                string  `json:"notes,omitempty"`
}

func toContractDTO(c *billing.Contract) ContractDTO {
	dto := ContractDTO{
		ID:                  string(c.ID),
		CompanyID:           string(c.CompanyID),
		ItemName:            c.ItemName,
		StartDate:           dateString(c.Start),
		EndDate:             dateString(c.End),
		MonthlyAmount:       c.MonthlyAmount.String(),
		BillingCycle:        string(c.Cycle),
		BillingMonths:       c.BillingMonths,
		BillingTiming:       c.Timing,
		AutoRenewal:         c.AutoRenewal,
		RenewalPeriodMonths: c.RenewalPeriodMonths,
		ReverseBilling:      c.ReverseBilling,
		OutsourcingAmount:   c.OutsourcingAmount.String(),
		OutsourcingZero:     c.OutsourcingZero,
		Status:              string(c.Status),
		Notes:               c.Notes,
		CreatedAt:           formatTime(c.CreatedAt),
	}
	if c.OutsourcingCompanyID != nil {
		s := string(*c.OutsourcingCompanyID)
		dto.OutsourcingCompanyID = &s
	}
	return dto
}

// =============================================================================
// CONTRACT HISTORY
// =============================================================================

// HistoryDTO represents one amendment in API responses.
type HistoryDTO struct {
	ID            string  `json:"id"`
	ContractID    string  `json:"contract_id"`
	ChangeType    string  `json:"change_type"`
	EffectiveDate string  `json:"effective_date"`
	OldAmount     *string `json:"old_amount,omitempty"`
	NewAmount     *string `json:"new_amount,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CreatedBy     string  `json:"created_by,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// AddHistoryRequest records one amendment against a contract.
type AddHistoryRequest struct {
	ChangeType    string  `json:"change_type"`
	EffectiveDate string  `json:"effective_date"`
	OldAmount     *string `json:"old_amount,omitempty"`
	NewAmount     *string `json:"new_amount,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CreatedBy     string  `json:"created_by,omitempty"`
}

func toHistoryDTO(h *billing.ContractHistory) HistoryDTO {
	return HistoryDTO{
		ID:            string(h.ID),
		ContractID:    string(h.ContractID),
		ChangeType:    string(h.Type),
		EffectiveDate: h.EffectiveDate.String(),
		OldAmount:     decimalString(h.OldAmount),
		NewAmount:     decimalString(h.NewAmount),
		Reason:        h.Reason,
		CreatedBy:     h.CreatedBy,
		CreatedAt:     formatTime(h.CreatedAt),
	}
}

// =============================================================================
// BILLING
// =============================================================================

// BillingDTO represents one monthly invoice in API responses.
type BillingDTO struct {
	ID                string            `json:"id"`
	ContractID        string            `json:"contract_id"`
	Year              int               `json:"year"`
	Month             int               `json:"month"`
	CoverMonths       int               `json:"cover_months"`
	CalculatedAmount  string            `json:"calculated_amount"`
	OverrideAmount    *string           `json:"override_amount,omitempty"`
	FinalAmount       string            `json:"final_amount"`
	VATAmount         string            `json:"vat_amount"`
	TotalAmount       string            `json:"total_amount"`
	OutsourcingAmount string            `json:"outsourcing_amount"`
	Profit            string            `json:"profit"`
	SuggestedDate     *string           `json:"suggested_date,omitempty"`
	SalesDate         *string           `json:"sales_date,omitempty"`
	RequestDate       *string           `json:"request_date,omitempty"`
	Status            string            `json:"status"`
	Warnings          []billing.Warning `json:"warnings,omitempty"`
	HasWarnings       bool              `json:"has_warnings"`
	Notes             string            `json:"notes,omitempty"`
	LockedAt          *string           `json:"locked_at,omitempty"`
	LockedBy          string            `json:"locked_by,omitempty"`
}

func toBillingDTO(b *billing.MonthlyBilling) BillingDTO {
	dto := BillingDTO{
		ID:                string(b.ID),
		ContractID:        string(b.ContractID),
		Year:              b.Year,
		Month:             b.Month,
		CoverMonths:       b.CoverMonths,
		CalculatedAmount:  b.CalculatedAmount.String(),
		OverrideAmount:    decimalString(b.OverrideAmount),
		FinalAmount:       b.FinalAmount.String(),
		VATAmount:         b.VATAmount.String(),
		TotalAmount:       b.TotalAmount.String(),
		OutsourcingAmount: b.OutsourcingAmount.String(),
		Profit:            b.Profit.String(),
		SuggestedDate:     dateString(b.SuggestedDate),
		SalesDate:         dateString(b.SalesDate),
		RequestDate:       dateString(b.RequestDate),
		Status:            string(b.Status),
		Warnings:          b.Warnings,
		HasWarnings:       b.HasWarnings,
		Notes:             b.Notes,
		LockedBy:          b.LockedBy,
	}
	if b.LockedAt != nil {
		s := formatTime(*b.LockedAt)
		dto.LockedAt = &s
	}
	return dto
}

func toBillingDTOs(bs []billing.MonthlyBilling) []BillingDTO {
	dtos := make([]BillingDTO, len(bs))
	for i := range bs {
		dtos[i] = toBillingDTO(&bs[i])
	}
	return dtos
}

// GenerateRequest asks for a generation run.
type GenerateRequest struct {
	Year  int  `json:"year"`
	Month int  `json:"month"`
	Save  bool `json:"save"`
}

// GenerateResponse carries the drafts and the run report.
type GenerateResponse struct {
	Report   *billing.GenerationReport `json:"report"`
	Billings []BillingDTO              `json:"billings"`
}

// LockRequest names who is locking the invoice.
type LockRequest struct {
	Actor string `json:"actor"`
}

// OverrideRequest carries reviewer adjustments. Nil fields are untouched.
type OverrideRequest struct {
	Amount      *string `json:"amount,omitempty"`
	SalesDate   *string `json:"sales_date,omitempty"`
	RequestDate *string `json:"request_date,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// =============================================================================
// OUTSOURCING ENTRIES
// =============================================================================

// EntryDTO represents a subcontractor purchase in API responses.
type EntryDTO struct {
	ID           string  `json:"id"`
	BillingID    string  `json:"billing_id"`
	CompanyID    string  `json:"company_id"`
	Amount       string  `json:"amount"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// AddEntryRequest records a subcontractor purchase against an invoice.
type AddEntryRequest struct {
	CompanyID    string  `json:"company_id"`
	Amount       string  `json:"amount"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

func toEntryDTO(e *billing.OutsourcingEntry) EntryDTO {
	return EntryDTO{
		ID:           string(e.ID),
		BillingID:    string(e.BillingID),
		CompanyID:    string(e.CompanyID),
		Amount:       e.Amount.String(),
		PurchaseDate: dateString(e.PurchaseDate),
		Notes:        e.Notes,
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents one holiday in API responses.
type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// SaveHolidayRequest registers a holiday.
type SaveHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func dateString(d *billing.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
