package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	poolapp "github.com/payflow/backend/internal/application/pool"
)

// PoolHandler handles capital pool API endpoints
type PoolHandler struct {
	BaseHandler
	poolService *poolapp.PoolService
}

// NewPoolHandler creates a new PoolHandler
func NewPoolHandler(poolService *poolapp.PoolService) *PoolHandler {
	return &PoolHandler{
		poolService: poolService,
	}
}

// GetPool godoc
// @Summary      Get capital pool state
// @Description  Returns pool totals, share price and available liquidity
// @Tags         pool
// @Produce      json
// @Success      200 {object} dto.Response{data=poolapp.PoolResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool [get]
func (h *PoolHandler) GetPool(c *gin.Context) {
	resp, err := h.poolService.GetPool(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deposit godoc
// @Summary      Deposit assets into the pool
// @Description  Mints shares at the current share price for the depositing provider
// @Tags         pool
// @Accept       json
// @Produce      json
// @Param        request body poolapp.DepositRequest true "Deposit request"
// @Success      201 {object} dto.Response{data=poolapp.DepositResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/deposits [post]
func (h *PoolHandler) Deposit(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req poolapp.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.poolService.Deposit(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Withdraw godoc
// @Summary      Withdraw assets from the pool
// @Description  Burns the shares backing the requested asset amount
// @Tags         pool
// @Accept       json
// @Produce      json
// @Param        request body poolapp.WithdrawRequest true "Withdrawal request"
// @Success      200 {object} dto.Response{data=poolapp.WithdrawResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/withdrawals [post]
func (h *PoolHandler) Withdraw(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req poolapp.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.poolService.Withdraw(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Redeem godoc
// @Summary      Redeem shares for assets
// @Description  Burns an exact share amount and returns the backing assets
// @Tags         pool
// @Accept       json
// @Produce      json
// @Param        request body poolapp.RedeemRequest true "Redemption request"
// @Success      200 {object} dto.Response{data=poolapp.WithdrawResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/redemptions [post]
func (h *PoolHandler) Redeem(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req poolapp.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.poolService.Redeem(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PreviewDeposit godoc
// @Summary      Preview a deposit
// @Description  Returns the shares a deposit of the given amount would mint
// @Tags         pool
// @Produce      json
// @Param        amount query string true "Asset amount"
// @Success      200 {object} dto.Response{data=PreviewDepositResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/preview-deposit [get]
func (h *PoolHandler) PreviewDeposit(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}

	shares, err := h.poolService.PreviewDeposit(c.Request.Context(), amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PreviewDepositResponse{Amount: amount, Shares: shares})
}

// PreviewDepositResponse reports the share amount a deposit would mint
type PreviewDepositResponse struct {
	Amount decimal.Decimal `json:"amount"`
	Shares decimal.Decimal `json:"shares"`
}

// GetShareHolder godoc
// @Summary      Get a share holder position
// @Tags         pool
// @Produce      json
// @Param        id path string true "Holder ID" format(uuid)
// @Success      200 {object} dto.Response{data=poolapp.ShareHolderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/holders/{id} [get]
func (h *PoolHandler) GetShareHolder(c *gin.Context) {
	holderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid holder ID format")
		return
	}

	resp, err := h.poolService.GetShareHolder(c.Request.Context(), holderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListShareHolders godoc
// @Summary      List share holder positions
// @Tags         pool
// @Produce      json
// @Param        holder query string false "Holder ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]poolapp.ShareHolderResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /pool/holders [get]
func (h *PoolHandler) ListShareHolders(c *gin.Context) {
	var filter poolapp.ShareHolderListFilter
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

	holders, total, err := h.poolService.ListShareHolders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, holders, total, filter.Page, filter.PageSize)
}

// Pause godoc
// @Summary      Pause the pool
// @Description  Blocks deposits, withdrawals and fundings until unpaused
// @Tags         pool
// @Produce      json
// @Success      200 {object} dto.Response{data=poolapp.PoolResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/pause [post]
func (h *PoolHandler) Pause(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.poolService.Pause(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Unpause godoc
// @Summary      Unpause the pool
// @Tags         pool
// @Produce      json
// @Success      200 {object} dto.Response{data=poolapp.PoolResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/unpause [post]
func (h *PoolHandler) Unpause(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.poolService.Unpause(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CheckConservation godoc
// @Summary      Check the pool accounting identity
// @Description  Verifies liquid + deployed balances equal total assets
// @Tags         pool
// @Produce      json
// @Success      200 {object} dto.Response{data=poolapp.ConservationResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pool/conservation [get]
func (h *PoolHandler) CheckConservation(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.poolService.CheckConservation(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
