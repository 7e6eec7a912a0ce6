package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
)

// InvoiceService provides application-level invoice lifecycle operations
type InvoiceService struct {
	uow         domain.UnitOfWorkRunner
	invoiceRepo invoice.Repository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(uow domain.UnitOfWorkRunner, invoiceRepo invoice.Repository) *InvoiceService {
	return &InvoiceService{
		uow:         uow,
		invoiceRepo: invoiceRepo,
	}
}

// ===================== Requests and responses =====================

// CreateInvoiceRequest registers a new receivable
type CreateInvoiceRequest struct {
	InvoiceNumber   string          `json:"invoice_number" binding:"required,max=50"`
	Buyer           uuid.UUID       `json:"buyer" binding:"required"`
	Supplier        uuid.UUID       `json:"supplier" binding:"required"`
	FaceValue       decimal.Decimal `json:"face_value" binding:"required"`
	DiscountRateBps int64           `json:"discount_rate_bps" binding:"required,gt=0"`
	MaturityDate    time.Time       `json:"maturity_date" binding:"required"`
}

// CancelInvoiceRequest withdraws an invoice before funding
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                uuid.UUID       `json:"id"`
	InvoiceNumber     string          `json:"invoice_number"`
	Buyer             uuid.UUID       `json:"buyer"`
	Supplier          uuid.UUID       `json:"supplier"`
	Creator           uuid.UUID       `json:"creator"`
	FaceValue         decimal.Decimal `json:"face_value"`
	DiscountRateBps   int64           `json:"discount_rate_bps"`
	MaturityDate      time.Time       `json:"maturity_date"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	FundingAmount     decimal.Decimal `json:"funding_amount"`
	Status            string          `json:"status"`
	Overdue           bool            `json:"overdue"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	FundingApprovedAt *time.Time      `json:"funding_approved_at,omitempty"`
	FundedAt          *time.Time      `json:"funded_at,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	DefaultedAt       *time.Time      `json:"defaulted_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search       string     `form:"search"`
	Buyer        *uuid.UUID `form:"buyer"`
	Supplier     *uuid.UUID `form:"supplier"`
	Status       string     `form:"status"`
	MaturedBy    *time.Time `form:"matured_by"`
	Overdue      *bool      `form:"overdue"`
	CreatedAfter *time.Time `form:"created_after"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
}

// InvoiceStatsResponse reports invoice counts per lifecycle state
type InvoiceStatsResponse struct {
	Pending         int64 `json:"pending"`
	Approved        int64 `json:"approved"`
	FundingApproved int64 `json:"funding_approved"`
	Funded          int64 `json:"funded"`
	Paid            int64 `json:"paid"`
	Defaulted       int64 `json:"defaulted"`
	Cancelled       int64 `json:"cancelled"`
}

// ===================== Mutations =====================

// Create registers a pending invoice. The supplier registers its own
// receivables; operators may register on a supplier's behalf.
func (s *InvoiceService) Create(ctx context.Context, actor shared.Actor, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	var resp *InvoiceResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		invoices := uow.Invoices()

		existing, err := invoices.FindByNumber(ctx, req.InvoiceNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.ErrAlreadyExists
		}

		inv, err := invoice.NewInvoice(
			req.InvoiceNumber,
			req.Buyer,
			req.Supplier,
			actor,
			valueobject.NewMoneyUSD(req.FaceValue),
			req.DiscountRateBps,
			req.MaturityDate,
		)
		if err != nil {
			return err
		}

		if err := invoices.Save(ctx, inv); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, inv.GetDomainEvents()...); err != nil {
			return err
		}
		inv.ClearDomainEvents()

		resp = toInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Approve acknowledges the debt. Buyer only.
func (s *InvoiceService) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Approve(actor)
	})
}

// ApproveFunding accepts the invoice for financing and freezes its
// economics: the discount and funding amount computed here never change.
// Operator only.
func (s *InvoiceService) ApproveFunding(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, id, func(inv *invoice.Invoice) error {
		return inv.ApproveFunding(actor, time.Now())
	})
}

// Cancel withdraws an invoice that has not been funded
func (s *InvoiceService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	return s.transition(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Cancel(actor, req.Reason)
	})
}

func (s *InvoiceService) transition(ctx context.Context, id uuid.UUID, op func(*invoice.Invoice) error) (*InvoiceResponse, error) {
	var resp *InvoiceResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		invoices := uow.Invoices()

		inv, err := invoices.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := op(inv); err != nil {
			return err
		}
		if err := invoices.Save(ctx, inv); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, inv.GetDomainEvents()...); err != nil {
			return err
		}
		inv.ClearDomainEvents()

		resp = toInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ===================== Queries =====================

// GetByID gets an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetByNumber gets an invoice by its invoice number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// List lists invoices with filtering
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := invoice.Filter{
		Buyer:        filter.Buyer,
		Supplier:     filter.Supplier,
		MaturedBy:    filter.MaturedBy,
		CreatedAfter: filter.CreatedAfter,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := invoice.Status(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown invoice status")
		}
		domainFilter.Status = &status
	}
	if filter.Overdue != nil && *filter.Overdue {
		now := time.Now()
		domainFilter.OverdueAsOf = &now
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}
	return responses, total, nil
}

// ListOverdue lists funded invoices past maturity
func (s *InvoiceService) ListOverdue(ctx context.Context) ([]InvoiceResponse, error) {
	invoices, err := s.invoiceRepo.FindOverdue(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}
	return responses, nil
}

// Stats counts invoices per lifecycle state
func (s *InvoiceService) Stats(ctx context.Context) (*InvoiceStatsResponse, error) {
	stats := &InvoiceStatsResponse{}
	counts := []struct {
		status invoice.Status
		dest   *int64
	}{
		{invoice.StatusPending, &stats.Pending},
		{invoice.StatusApproved, &stats.Approved},
		{invoice.StatusFundingApproved, &stats.FundingApproved},
		{invoice.StatusFunded, &stats.Funded},
		{invoice.StatusPaid, &stats.Paid},
		{invoice.StatusDefaulted, &stats.Defaulted},
		{invoice.StatusCancelled, &stats.Cancelled},
	}
	for _, c := range counts {
		n, err := s.invoiceRepo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.dest = n
	}
	return stats, nil
}

// ===================== Helpers =====================

func toInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		Buyer:             inv.Buyer,
		Supplier:          inv.Supplier,
		Creator:           inv.Creator,
		FaceValue:         inv.FaceValue,
		DiscountRateBps:   inv.DiscountRateBps,
		MaturityDate:      inv.MaturityDate,
		DiscountAmount:    inv.DiscountAmount,
		FundingAmount:     inv.FundingAmount,
		Status:            inv.Status.String(),
		Overdue:           inv.IsOverdue(time.Now()),
		ApprovedAt:        inv.ApprovedAt,
		FundingApprovedAt: inv.FundingApproved,
		FundedAt:          inv.FundedAt,
		PaidAt:            inv.PaidAt,
		DefaultedAt:       inv.DefaultedAt,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
}
