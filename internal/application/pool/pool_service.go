package pool

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
)

// PoolService provides application-level capital pool operations
type PoolService struct {
	uow      domain.UnitOfWorkRunner
	poolRepo pool.Repository
}

// NewPoolService creates a new PoolService. poolRepo serves the read paths;
// mutations run through the unit of work.
func NewPoolService(uow domain.UnitOfWorkRunner, poolRepo pool.Repository) *PoolService {
	return &PoolService{
		uow:      uow,
		poolRepo: poolRepo,
	}
}

// ===================== Requests and responses =====================

// DepositRequest carries a capital deposit
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	// Holder overrides the beneficiary; operators only
	Holder *uuid.UUID `json:"holder,omitempty"`
}

// WithdrawRequest carries an asset-denominated withdrawal
type WithdrawRequest struct {
	Assets decimal.Decimal `json:"assets" binding:"required"`
	Holder *uuid.UUID      `json:"holder,omitempty"`
}

// RedeemRequest carries a share-denominated redemption
type RedeemRequest struct {
	Shares decimal.Decimal `json:"shares" binding:"required"`
	Holder *uuid.UUID      `json:"holder,omitempty"`
}

// PoolResponse represents the capital pool in API responses
type PoolResponse struct {
	ID                      uuid.UUID       `json:"id"`
	TotalAssets             decimal.Decimal `json:"total_assets"`
	TotalShares             decimal.Decimal `json:"total_shares"`
	LiquidBalance           decimal.Decimal `json:"liquid_balance"`
	TotalDeployedToInvoices decimal.Decimal `json:"total_deployed_to_invoices"`
	TotalDeployedToTreasury decimal.Decimal `json:"total_deployed_to_treasury"`
	SharePrice              decimal.Decimal `json:"share_price"`
	AvailableLiquidity      decimal.Decimal `json:"available_liquidity"`
	Paused                  bool            `json:"paused"`
	PausedAt                *time.Time      `json:"paused_at,omitempty"`
	UpdatedAt               time.Time       `json:"updated_at"`
	Version                 int             `json:"version"`
}

// DepositResponse reports the outcome of a deposit
type DepositResponse struct {
	Holder       uuid.UUID       `json:"holder"`
	Amount       decimal.Decimal `json:"amount"`
	SharesMinted decimal.Decimal `json:"shares_minted"`
	TotalShares  decimal.Decimal `json:"total_shares"`
	SharePrice   decimal.Decimal `json:"share_price"`
}

// WithdrawResponse reports the outcome of a withdrawal or redemption
type WithdrawResponse struct {
	Holder          uuid.UUID       `json:"holder"`
	AssetsReturned  decimal.Decimal `json:"assets_returned"`
	SharesBurned    decimal.Decimal `json:"shares_burned"`
	RemainingShares decimal.Decimal `json:"remaining_shares"`
}

// ShareHolderResponse represents a share holder in API responses
type ShareHolderResponse struct {
	ID        uuid.UUID       `json:"id"`
	Holder    uuid.UUID       `json:"holder"`
	Shares    decimal.Decimal `json:"shares"`
	Value     decimal.Decimal `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ShareHolderListFilter defines filtering options for share holder queries
type ShareHolderListFilter struct {
	Holder   *uuid.UUID `form:"holder"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

// ConservationResponse reports the pool's accounting identity check
type ConservationResponse struct {
	Consistent bool   `json:"consistent"`
	Detail     string `json:"detail,omitempty"`
}

// ===================== Mutations =====================

// Deposit accepts provider capital and mints shares at the current price.
// The first deposit creates the pool.
func (s *PoolService) Deposit(ctx context.Context, actor shared.Actor, req DepositRequest) (*DepositResponse, error) {
	holder, err := resolveHolder(actor, req.Holder)
	if err != nil {
		return nil, err
	}
	amount := valueobject.NewMoneyUSD(req.Amount)

	var resp *DepositResponse
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		pools := uow.Pools()

		p, err := pools.Get(ctx)
		if errors.Is(err, shared.ErrNotFound) {
			p = pool.NewCapitalPool()
		} else if err != nil {
			return err
		}

		minted, err := p.Deposit(amount, holder)
		if err != nil {
			return err
		}

		h, err := pools.FindShareHolder(ctx, holder)
		if errors.Is(err, shared.ErrNotFound) {
			h, err = pool.NewShareHolder(holder)
		}
		if err != nil {
			return err
		}
		if err := h.AddShares(minted); err != nil {
			return err
		}

		if err := pools.Save(ctx, p); err != nil {
			return err
		}
		if err := pools.SaveShareHolder(ctx, h); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
			return err
		}
		p.ClearDomainEvents()

		resp = &DepositResponse{
			Holder:       holder,
			Amount:       amount.Amount(),
			SharesMinted: minted,
			TotalShares:  h.Shares,
			SharePrice:   p.SharePrice(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Withdraw returns liquid capital for an asset-denominated amount, burning
// the corresponding shares
func (s *PoolService) Withdraw(ctx context.Context, actor shared.Actor, req WithdrawRequest) (*WithdrawResponse, error) {
	holder, err := resolveHolder(actor, req.Holder)
	if err != nil {
		return nil, err
	}
	assets := valueobject.NewMoneyUSD(req.Assets)

	var resp *WithdrawResponse
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		pools := uow.Pools()

		p, err := pools.Get(ctx)
		if err != nil {
			return err
		}
		h, err := pools.FindShareHolder(ctx, holder)
		if err != nil {
			return err
		}

		burned, err := p.Withdraw(assets, holder, h.Shares)
		if err != nil {
			return err
		}
		if err := h.BurnShares(burned); err != nil {
			return err
		}

		if err := pools.Save(ctx, p); err != nil {
			return err
		}
		if err := s.saveOrDeleteHolder(ctx, pools, h); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
			return err
		}
		p.ClearDomainEvents()

		resp = &WithdrawResponse{
			Holder:          holder,
			AssetsReturned:  assets.Amount(),
			SharesBurned:    burned,
			RemainingShares: h.Shares,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Redeem burns an exact share count and returns the corresponding assets
func (s *PoolService) Redeem(ctx context.Context, actor shared.Actor, req RedeemRequest) (*WithdrawResponse, error) {
	holder, err := resolveHolder(actor, req.Holder)
	if err != nil {
		return nil, err
	}

	var resp *WithdrawResponse
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		pools := uow.Pools()

		p, err := pools.Get(ctx)
		if err != nil {
			return err
		}
		h, err := pools.FindShareHolder(ctx, holder)
		if err != nil {
			return err
		}

		assetsOut, err := p.Redeem(req.Shares, holder, h.Shares)
		if err != nil {
			return err
		}
		if err := h.BurnShares(req.Shares); err != nil {
			return err
		}

		if err := pools.Save(ctx, p); err != nil {
			return err
		}
		if err := s.saveOrDeleteHolder(ctx, pools, h); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
			return err
		}
		p.ClearDomainEvents()

		resp = &WithdrawResponse{
			Holder:          holder,
			AssetsReturned:  assetsOut.Amount(),
			SharesBurned:    req.Shares,
			RemainingShares: h.Shares,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Pause stops deposits and new capital deployment. Operator only.
func (s *PoolService) Pause(ctx context.Context, actor shared.Actor) (*PoolResponse, error) {
	return s.administer(ctx, actor, (*pool.CapitalPool).Pause)
}

// Unpause resumes deposits and deployment. Operator only.
func (s *PoolService) Unpause(ctx context.Context, actor shared.Actor) (*PoolResponse, error) {
	return s.administer(ctx, actor, (*pool.CapitalPool).Unpause)
}

func (s *PoolService) administer(ctx context.Context, actor shared.Actor, op func(*pool.CapitalPool) error) (*PoolResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}

	var resp *PoolResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		pools := uow.Pools()

		p, err := pools.Get(ctx)
		if err != nil {
			return err
		}
		if err := op(p); err != nil {
			return err
		}
		if err := pools.Save(ctx, p); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
			return err
		}
		p.ClearDomainEvents()

		resp = toPoolResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// saveOrDeleteHolder persists the holder, removing the row once the balance
// reaches zero
func (s *PoolService) saveOrDeleteHolder(ctx context.Context, pools pool.Repository, h *pool.ShareHolder) error {
	if h.IsEmpty() {
		return pools.DeleteShareHolder(ctx, h.ID)
	}
	return pools.SaveShareHolder(ctx, h)
}

// ===================== Queries =====================

// GetPool returns the current pool state
func (s *PoolService) GetPool(ctx context.Context) (*PoolResponse, error) {
	p, err := s.poolRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(p), nil
}

// PreviewDeposit quotes the shares a deposit would mint at the current price
func (s *PoolService) PreviewDeposit(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	p, err := s.poolRepo.Get(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		// First deposit mints one share per asset unit.
		return amount.RoundDown(pool.SharePrecision), nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return p.PreviewDeposit(valueobject.NewMoneyUSD(amount)), nil
}

// GetShareHolder returns a holder's balance with its current asset value
func (s *PoolService) GetShareHolder(ctx context.Context, holder uuid.UUID) (*ShareHolderResponse, error) {
	h, err := s.poolRepo.FindShareHolder(ctx, holder)
	if err != nil {
		return nil, err
	}
	p, err := s.poolRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toShareHolderResponse(h, p.SharePrice()), nil
}

// ListShareHolders lists holders with pagination
func (s *PoolService) ListShareHolders(ctx context.Context, filter ShareHolderListFilter) ([]ShareHolderResponse, int64, error) {
	domainFilter := pool.ShareHolderFilter{Holder: filter.Holder}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	holders, total, err := s.poolRepo.ListShareHolders(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	price := decimal.NewFromInt(1)
	if p, err := s.poolRepo.Get(ctx); err == nil {
		price = p.SharePrice()
	}

	responses := make([]ShareHolderResponse, len(holders))
	for i := range holders {
		responses[i] = *toShareHolderResponse(&holders[i], price)
	}
	return responses, total, nil
}

// CheckConservation verifies the pool's accounting identity. Operator only.
func (s *PoolService) CheckConservation(ctx context.Context, actor shared.Actor) (*ConservationResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	p, err := s.poolRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.CheckConservation(); err != nil {
		return &ConservationResponse{Consistent: false, Detail: err.Error()}, nil
	}
	return &ConservationResponse{Consistent: true}, nil
}

// ===================== Helpers =====================

// resolveHolder picks the acting holder: providers act for themselves,
// operators may act for any holder
func resolveHolder(actor shared.Actor, override *uuid.UUID) (uuid.UUID, error) {
	if actor.IsOperator() {
		if override != nil {
			return *override, nil
		}
		return uuid.Nil, shared.NewDomainError("MISSING_HOLDER", "Operator requests must name a holder")
	}
	if actor.Role != shared.RoleProvider {
		return uuid.Nil, shared.ErrForbidden
	}
	if override != nil && *override != actor.ID {
		return uuid.Nil, shared.ErrForbidden
	}
	return actor.ID, nil
}

func toPoolResponse(p *pool.CapitalPool) *PoolResponse {
	return &PoolResponse{
		ID:                      p.ID,
		TotalAssets:             p.TotalAssets,
		TotalShares:             p.TotalShares,
		LiquidBalance:           p.LiquidBalance,
		TotalDeployedToInvoices: p.TotalDeployedToInvoices,
		TotalDeployedToTreasury: p.TotalDeployedToTreasury,
		SharePrice:              p.SharePrice(),
		AvailableLiquidity:      p.AvailableLiquidity().Amount(),
		Paused:                  p.Paused,
		PausedAt:                p.PausedAt,
		UpdatedAt:               p.UpdatedAt,
		Version:                 p.Version,
	}
}

func toShareHolderResponse(h *pool.ShareHolder, sharePrice decimal.Decimal) *ShareHolderResponse {
	return &ShareHolderResponse{
		ID:        h.ID,
		Holder:    h.Holder,
		Shares:    h.Shares,
		Value:     h.Shares.Mul(sharePrice).RoundDown(pool.AmountPrecision),
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}
