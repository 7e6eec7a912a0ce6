package handler

import (
	"github.com/gin-gonic/gin"

	treasuryapp "github.com/payflow/backend/internal/application/treasury"
)

// TreasuryHandler handles treasury allocator API endpoints
type TreasuryHandler struct {
	BaseHandler
	treasuryService *treasuryapp.TreasuryService
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(treasuryService *treasuryapp.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{
		treasuryService: treasuryService,
	}
}

// GetTreasury godoc
// @Summary      Get treasury state
// @Description  Returns idle balance, strategies and the weighted APY estimate
// @Tags         treasury
// @Produce      json
// @Success      200 {object} dto.Response{data=treasuryapp.TreasuryResponse}
// @Security     BearerAuth
// @Router       /treasury [get]
func (h *TreasuryHandler) GetTreasury(c *gin.Context) {
	resp, err := h.treasuryService.GetTreasury(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddStrategy godoc
// @Summary      Register a yield strategy
// @Description  Adds a strategy with the given target weight; its adapter must be registered
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        request body treasuryapp.AddStrategyRequest true "Strategy registration"
// @Success      201 {object} dto.Response{data=treasuryapp.StrategyResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies [post]
func (h *TreasuryHandler) AddStrategy(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req treasuryapp.AddStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.treasuryService.AddStrategy(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RemoveStrategy godoc
// @Summary      Remove a yield strategy
// @Description  Drains the strategy's balance into the idle buffer, then unregisters it
// @Tags         treasury
// @Produce      json
// @Param        name path string true "Strategy name"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies/{name} [delete]
func (h *TreasuryHandler) RemoveStrategy(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.treasuryService.RemoveStrategy(c.Request.Context(), actor, c.Param("name")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetWeight godoc
// @Summary      Change a strategy's target weight
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        name path string true "Strategy name"
// @Param        request body treasuryapp.SetWeightRequest true "New weight"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies/{name}/weight [put]
func (h *TreasuryHandler) SetWeight(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req treasuryapp.SetWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.treasuryService.SetWeight(c.Request.Context(), actor, c.Param("name"), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// PauseStrategy godoc
// @Summary      Pause a strategy
// @Description  A paused strategy receives no deposits and targets a zero weight on rebalance
// @Tags         treasury
// @Produce      json
// @Param        name path string true "Strategy name"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies/{name}/pause [post]
func (h *TreasuryHandler) PauseStrategy(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.treasuryService.PauseStrategy(c.Request.Context(), actor, c.Param("name")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UnpauseStrategy godoc
// @Summary      Unpause a strategy
// @Tags         treasury
// @Produce      json
// @Param        name path string true "Strategy name"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies/{name}/unpause [post]
func (h *TreasuryHandler) UnpauseStrategy(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.treasuryService.UnpauseStrategy(c.Request.Context(), actor, c.Param("name")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Deposit godoc
// @Summary      Deploy pool liquidity into the treasury
// @Description  Splits the amount across active strategies by weight
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        request body treasuryapp.MoveRequest true "Amount to deploy"
// @Success      200 {object} dto.Response{data=treasuryapp.DepositResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/deposits [post]
func (h *TreasuryHandler) Deposit(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req treasuryapp.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.treasuryService.Deposit(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Withdraw godoc
// @Summary      Withdraw treasury funds back to the pool
// @Description  Serves the request from idle balance first, then drains strategies
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        request body treasuryapp.MoveRequest true "Amount to withdraw"
// @Success      200 {object} dto.Response{data=treasuryapp.WithdrawResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/withdrawals [post]
func (h *TreasuryHandler) Withdraw(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req treasuryapp.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.treasuryService.Withdraw(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// WithdrawAll godoc
// @Summary      Withdraw the full treasury balance
// @Tags         treasury
// @Produce      json
// @Success      200 {object} dto.Response{data=treasuryapp.WithdrawResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/withdrawals/all [post]
func (h *TreasuryHandler) WithdrawAll(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.treasuryService.WithdrawAll(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Rebalance godoc
// @Summary      Rebalance strategy balances toward target weights
// @Description  Subject to the configured cooldown between rebalances
// @Tags         treasury
// @Produce      json
// @Success      200 {object} dto.Response{data=treasuryapp.TreasuryResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/rebalance [post]
func (h *TreasuryHandler) Rebalance(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.treasuryService.Rebalance(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Harvest godoc
// @Summary      Harvest a strategy's accrued yield
// @Description  Re-anchors the strategy's tracked balance to its live value and realizes the delta
// @Tags         treasury
// @Produce      json
// @Param        name path string true "Strategy name"
// @Success      200 {object} dto.Response{data=treasuryapp.HarvestResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /treasury/strategies/{name}/harvest [post]
func (h *TreasuryHandler) Harvest(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.treasuryService.Harvest(c.Request.Context(), actor, c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
