package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	fundingapp "github.com/payflow/backend/internal/application/funding"
	"github.com/payflow/backend/internal/domain/shared"
)

// FundingHandler handles funding execution API endpoints
type FundingHandler struct {
	BaseHandler
	fundingService *fundingapp.FundingService
}

// NewFundingHandler creates a new FundingHandler
func NewFundingHandler(fundingService *fundingapp.FundingService) *FundingHandler {
	return &FundingHandler{
		fundingService: fundingService,
	}
}

// FundInvoice godoc
// @Summary      Fund an approved invoice
// @Description  Deploys pool capital to the supplier at the frozen funding amount; idempotent per invoice
// @Tags         funding
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=fundingapp.FundingRecordResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /funding/invoices/{id}/fund [post]
func (h *FundingHandler) FundInvoice(c *gin.Context) {
	h.settle(c, h.fundingService.FundInvoice)
}

// Repay godoc
// @Summary      Record invoice repayment
// @Description  The buyer settles the face value; principal and yield return to the pool
// @Tags         funding
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=fundingapp.FundingRecordResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /funding/invoices/{id}/repay [post]
func (h *FundingHandler) Repay(c *gin.Context) {
	h.settle(c, h.fundingService.Repay)
}

// MarkDefaulted godoc
// @Summary      Record an invoice default
// @Description  Writes the deployed principal off the pool's books
// @Tags         funding
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=fundingapp.FundingRecordResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /funding/invoices/{id}/default [post]
func (h *FundingHandler) MarkDefaulted(c *gin.Context) {
	h.settle(c, h.fundingService.MarkDefaulted)
}

// ConfirmSettlement godoc
// @Summary      Apply an inbound settlement confirmation
// @Description  Maps a confirmed gateway transfer to the matching funding or repayment execution
// @Tags         funding
// @Accept       json
// @Produce      json
// @Param        confirmation body fundingapp.SettlementConfirmationRequest true "Settlement confirmation"
// @Success      200 {object} dto.Response{data=fundingapp.FundingRecordResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /funding/settlements [post]
func (h *FundingHandler) ConfirmSettlement(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req fundingapp.SettlementConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.fundingService.ConfirmSettlement(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetRecordByInvoice godoc
// @Summary      Get the funding record for an invoice
// @Tags         funding
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=fundingapp.FundingRecordResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /funding/invoices/{id} [get]
func (h *FundingHandler) GetRecordByInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	resp, err := h.fundingService.GetRecordByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListRecords godoc
// @Summary      List funding records
// @Tags         funding
// @Produce      json
// @Param        supplier query string false "Supplier ID" format(uuid)
// @Param        settled query boolean false "Filter by settled state"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]fundingapp.FundingRecordResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /funding/records [get]
func (h *FundingHandler) ListRecords(c *gin.Context) {
	var filter fundingapp.RecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	records, total, err := h.fundingService.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// GetLedger godoc
// @Summary      Get the execution ledger
// @Description  Aggregate funded, repaid, yield and default totals
// @Tags         funding
// @Produce      json
// @Success      200 {object} dto.Response{data=fundingapp.LedgerResponse}
// @Security     BearerAuth
// @Router       /funding/ledger [get]
func (h *FundingHandler) GetLedger(c *gin.Context) {
	resp, err := h.fundingService.GetLedger(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// settle runs a settlement operation keyed by the :id path parameter
func (h *FundingHandler) settle(
	c *gin.Context,
	op func(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) (*fundingapp.FundingRecordResponse, error),
) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	resp, err := op(c.Request.Context(), actor, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
