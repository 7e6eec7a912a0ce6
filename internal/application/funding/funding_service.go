package funding

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
)

// fundingIdempotencyTTL bounds how long a funding execution key is
// remembered. The funding record's unique invoice index remains the durable
// guard after expiry.
const fundingIdempotencyTTL = 24 * time.Hour

// FundingService executes invoice financing against the capital pool and
// maintains the execution ledger. Funding, repayment, and default each
// mutate the invoice, the pool, the funding record, and the ledger counters
// in one transaction.
type FundingService struct {
	uow         domain.UnitOfWorkRunner
	fundingRepo funding.Repository
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
}

// NewFundingService creates a new FundingService
func NewFundingService(
	uow domain.UnitOfWorkRunner,
	fundingRepo funding.Repository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *FundingService {
	return &FundingService{
		uow:         uow,
		fundingRepo: fundingRepo,
		idempotency: idempotency,
		logger:      logger,
	}
}

// ===================== Responses =====================

// FundingRecordResponse represents a funding record in API responses
type FundingRecordResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Supplier      uuid.UUID       `json:"supplier"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	FaceValue     decimal.Decimal `json:"face_value"`
	Yield         decimal.Decimal `json:"yield"`
	FundedAt      time.Time       `json:"funded_at"`
	Repaid        bool            `json:"repaid"`
	RepaidAt      *time.Time      `json:"repaid_at,omitempty"`
	Defaulted     bool            `json:"defaulted"`
	DefaultedAt   *time.Time      `json:"defaulted_at,omitempty"`
	Version       int             `json:"version"`
}

// RecordListFilter defines filtering options for funding record queries
type RecordListFilter struct {
	Supplier *uuid.UUID `form:"supplier"`
	Settled  *bool      `form:"settled"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

// LedgerResponse reports the execution ledger's aggregate counters
type LedgerResponse struct {
	TotalFunded    decimal.Decimal `json:"total_funded"`
	TotalRepaid    decimal.Decimal `json:"total_repaid"`
	TotalYield     decimal.Decimal `json:"total_yield"`
	TotalDefaulted decimal.Decimal `json:"total_defaulted"`
	ActiveInvoices int64           `json:"active_invoices"`
}

// ===================== Executions =====================

// FundInvoice deploys pool capital against a funding-approved invoice and
// opens its funding record. The operation is idempotent per invoice: a
// repeated request returns the existing record instead of deploying twice.
// The supplier or an operator may trigger it.
func (s *FundingService) FundInvoice(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) (*FundingRecordResponse, error) {
	key := "funding:fund:" + invoiceID.String()
	if seen, err := s.idempotency.IsProcessed(ctx, key); err == nil && seen {
		rec, err := s.fundingRepo.FindByInvoice(ctx, invoiceID)
		if err == nil {
			return toRecordResponse(rec), nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		// Key present but no record: a prior attempt died mid-flight.
		// Fall through and let the transaction settle it.
	}

	var resp *FundingRecordResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		existing, err := uow.Funding().FindByInvoice(ctx, invoiceID)
		if err == nil {
			resp = toRecordResponse(existing)
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		inv, err := uow.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.MarkFunded(actor); err != nil {
			return err
		}

		fundingAmount := valueobject.NewMoneyUSD(inv.FundingAmount)
		faceValue := valueobject.NewMoneyUSD(inv.FaceValue)

		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.DeployForFunding(fundingAmount, inv.ID); err != nil {
			return err
		}

		rec, err := funding.NewFundingRecord(inv.ID, inv.Supplier, fundingAmount, faceValue)
		if err != nil {
			return err
		}

		ledger, err := s.getOrCreateLedger(ctx, uow)
		if err != nil {
			return err
		}
		if err := ledger.RecordFunding(fundingAmount); err != nil {
			return err
		}

		if err := s.settle(ctx, uow, inv, rec, p, ledger); err != nil {
			return err
		}
		resp = toRecordResponse(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.idempotency.MarkProcessed(ctx, key, fundingIdempotencyTTL); err != nil {
		s.logger.Warn("Failed to record funding idempotency key",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err))
	}
	return resp, nil
}

// Repay settles a funded invoice at face value: the pool receives principal
// plus realized yield and the invoice closes as paid. The buyer or an
// operator may settle.
func (s *FundingService) Repay(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) (*FundingRecordResponse, error) {
	var resp *FundingRecordResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		inv, err := uow.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.MarkRepaid(actor); err != nil {
			return err
		}

		rec, err := uow.Funding().FindByInvoice(ctx, invoiceID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFunded
		}
		if err != nil {
			return err
		}
		if err := rec.MarkRepaid(); err != nil {
			return err
		}

		principal := valueobject.NewMoneyUSD(rec.FundingAmount)
		yield := valueobject.NewMoneyUSD(rec.Yield())
		faceValue := valueobject.NewMoneyUSD(rec.FaceValue)

		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.ReceiveRepayment(principal, yield, inv.ID); err != nil {
			return err
		}

		ledger, err := uow.Funding().GetLedger(ctx)
		if err != nil {
			return err
		}
		if err := ledger.RecordRepayment(faceValue, yield); err != nil {
			return err
		}

		if err := s.settle(ctx, uow, inv, rec, p, ledger); err != nil {
			return err
		}
		resp = toRecordResponse(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// MarkDefaulted writes off a funded invoice: the pool absorbs the loss of
// the deployed principal and the invoice closes as defaulted. Operator only,
// always an explicit action.
func (s *FundingService) MarkDefaulted(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) (*FundingRecordResponse, error) {
	var resp *FundingRecordResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		inv, err := uow.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.MarkDefaulted(actor); err != nil {
			return err
		}

		rec, err := uow.Funding().FindByInvoice(ctx, invoiceID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFunded
		}
		if err != nil {
			return err
		}
		if err := rec.MarkDefaulted(); err != nil {
			return err
		}

		principal := valueobject.NewMoneyUSD(rec.FundingAmount)

		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.RecordDefault(principal, inv.ID); err != nil {
			return err
		}

		ledger, err := uow.Funding().GetLedger(ctx)
		if err != nil {
			return err
		}
		if err := ledger.RecordDefault(principal); err != nil {
			return err
		}

		if err := s.settle(ctx, uow, inv, rec, p, ledger); err != nil {
			return err
		}
		resp = toRecordResponse(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ===================== Settlement intake =====================

// Settlement confirmation directions and statuses as reported by the
// payment integration.
const (
	SettlementDirectionFunding   = "FUNDING"
	SettlementDirectionRepayment = "REPAYMENT"

	SettlementStatusConfirmed = "CONFIRMED"
	SettlementStatusFailed    = "FAILED"
)

// SettlementConfirmationRequest is the gateway-agnostic record posted by the
// payment integration once a transfer clears or fails. The ledger reads its
// structured fields only; gateway wire formats never reach this layer.
type SettlementConfirmationRequest struct {
	PaymentID             string          `json:"payment_id" binding:"required,max=100"`
	InvoiceID             uuid.UUID       `json:"invoice_id" binding:"required"`
	Direction             string          `json:"direction" binding:"required,oneof=FUNDING REPAYMENT"`
	Amount                decimal.Decimal `json:"amount" binding:"required"`
	Currency              string          `json:"currency" binding:"required,len=3"`
	Status                string          `json:"status" binding:"required,oneof=CONFIRMED FAILED"`
	CounterpartyWalletRef string          `json:"counterparty_wallet_ref,omitempty"`
	BankAccountRef        string          `json:"bank_account_ref,omitempty"`
	ErrorCode             string          `json:"error_code,omitempty"`
}

// ConfirmSettlement maps an inbound settlement confirmation onto the matching
// ledger execution: a confirmed funding transfer funds the invoice, a
// confirmed repayment settles it. Failed confirmations are logged and mutate
// nothing. The reported amount must match the ledger's own figure for the
// transfer, so a gateway discrepancy surfaces before any capital moves.
func (s *FundingService) ConfirmSettlement(ctx context.Context, actor shared.Actor, req SettlementConfirmationRequest) (*FundingRecordResponse, error) {
	if req.Currency != string(valueobject.SettlementCurrency) {
		return nil, shared.ErrSettlementMismatch
	}

	if req.Status == SettlementStatusFailed {
		s.logger.Warn("Settlement failed upstream, ledger untouched",
			zap.String("payment_id", req.PaymentID),
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.String("direction", req.Direction),
			zap.String("error_code", req.ErrorCode))
		rec, err := s.fundingRepo.FindByInvoice(ctx, req.InvoiceID)
		if err != nil {
			return nil, err
		}
		return toRecordResponse(rec), nil
	}

	expected, err := s.expectedTransferAmount(ctx, req.InvoiceID, req.Direction)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(expected) {
		s.logger.Warn("Settlement amount does not match ledger figure",
			zap.String("payment_id", req.PaymentID),
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.String("reported", req.Amount.String()),
			zap.String("expected", expected.String()))
		return nil, shared.ErrSettlementMismatch
	}

	switch req.Direction {
	case SettlementDirectionFunding:
		return s.FundInvoice(ctx, actor, req.InvoiceID)
	default:
		return s.Repay(ctx, actor, req.InvoiceID)
	}
}

// expectedTransferAmount resolves the ledger's own figure for a transfer:
// the frozen funding amount for an outbound funding, the face value for an
// inbound repayment.
func (s *FundingService) expectedTransferAmount(ctx context.Context, invoiceID uuid.UUID, direction string) (decimal.Decimal, error) {
	if direction == SettlementDirectionRepayment {
		rec, err := s.fundingRepo.FindByInvoice(ctx, invoiceID)
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, shared.ErrNotFunded
		}
		if err != nil {
			return decimal.Zero, err
		}
		return rec.FaceValue, nil
	}

	var expected decimal.Decimal
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		inv, err := uow.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		expected = inv.FundingAmount
		return nil
	})
	return expected, err
}

// ===================== Queries =====================

// GetRecordByInvoice returns the funding record for an invoice
func (s *FundingService) GetRecordByInvoice(ctx context.Context, invoiceID uuid.UUID) (*FundingRecordResponse, error) {
	rec, err := s.fundingRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toRecordResponse(rec), nil
}

// ListRecords lists funding records with filtering
func (s *FundingService) ListRecords(ctx context.Context, filter RecordListFilter) ([]FundingRecordResponse, int64, error) {
	domainFilter := funding.RecordFilter{
		Supplier: filter.Supplier,
		Settled:  filter.Settled,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	records, total, err := s.fundingRepo.ListRecords(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]FundingRecordResponse, len(records))
	for i := range records {
		responses[i] = *toRecordResponse(&records[i])
	}
	return responses, total, nil
}

// GetLedger returns the execution ledger's aggregate counters
func (s *FundingService) GetLedger(ctx context.Context) (*LedgerResponse, error) {
	ledger, err := s.fundingRepo.GetLedger(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return &LedgerResponse{
			TotalFunded:    decimal.Zero,
			TotalRepaid:    decimal.Zero,
			TotalYield:     decimal.Zero,
			TotalDefaulted: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &LedgerResponse{
		TotalFunded:    ledger.TotalFunded,
		TotalRepaid:    ledger.TotalRepaid,
		TotalYield:     ledger.TotalYield,
		TotalDefaulted: ledger.TotalDefaulted,
		ActiveInvoices: ledger.ActiveInvoices,
	}, nil
}

// ===================== Helpers =====================

// settle persists the four aggregates touched by a settlement and flushes
// their events
func (s *FundingService) settle(
	ctx context.Context,
	uow domain.UnitOfWork,
	inv *invoice.Invoice,
	rec *funding.FundingRecord,
	p *pool.CapitalPool,
	ledger *funding.Ledger,
) error {
	if err := uow.Invoices().Save(ctx, inv); err != nil {
		return err
	}
	if err := uow.Pools().Save(ctx, p); err != nil {
		return err
	}
	if err := uow.Funding().SaveRecord(ctx, rec); err != nil {
		return err
	}
	if err := uow.Funding().SaveLedger(ctx, ledger); err != nil {
		return err
	}

	events := append(inv.GetDomainEvents(), p.GetDomainEvents()...)
	events = append(events, rec.GetDomainEvents()...)
	if err := uow.SaveEvents(ctx, events...); err != nil {
		return err
	}
	inv.ClearDomainEvents()
	p.ClearDomainEvents()
	rec.ClearDomainEvents()
	return nil
}

// getOrCreateLedger loads the ledger, creating the counter row on first use
func (s *FundingService) getOrCreateLedger(ctx context.Context, uow domain.UnitOfWork) (*funding.Ledger, error) {
	ledger, err := uow.Funding().GetLedger(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return funding.NewLedger(), nil
	}
	return ledger, err
}

func toRecordResponse(rec *funding.FundingRecord) *FundingRecordResponse {
	return &FundingRecordResponse{
		ID:            rec.ID,
		InvoiceID:     rec.InvoiceID,
		Supplier:      rec.Supplier,
		FundingAmount: rec.FundingAmount,
		FaceValue:     rec.FaceValue,
		Yield:         rec.Yield(),
		FundedAt:      rec.FundedAt,
		Repaid:        rec.Repaid,
		RepaidAt:      rec.RepaidAt,
		Defaulted:     rec.Defaulted,
		DefaultedAt:   rec.DefaultedAt,
		Version:       rec.Version,
	}
}
