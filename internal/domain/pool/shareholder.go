package pool

import (
	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShareHolder maps a capital provider to their share balance. Holders are
// created implicitly on first deposit and removed once their balance reaches
// zero.
type ShareHolder struct {
	shared.BaseEntity
	Holder uuid.UUID       `json:"holder"`
	Shares decimal.Decimal `json:"shares"`
}

// NewShareHolder creates a share holder with a zero balance
func NewShareHolder(holder uuid.UUID) (*ShareHolder, error) {
	if holder == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder cannot be empty")
	}
	return &ShareHolder{
		BaseEntity: shared.NewBaseEntity(),
		Holder:     holder,
		Shares:     decimal.Zero,
	}, nil
}

// AddShares credits minted shares to the holder
func (h *ShareHolder) AddShares(shares decimal.Decimal) error {
	if !shares.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Share amount must be positive")
	}
	h.Shares = h.Shares.Add(shares)
	return nil
}

// BurnShares debits burned shares from the holder
func (h *ShareHolder) BurnShares(shares decimal.Decimal) error {
	if !shares.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Share amount must be positive")
	}
	if shares.GreaterThan(h.Shares) {
		return shared.ErrInsufficientShares
	}
	h.Shares = h.Shares.Sub(shares)
	return nil
}

// IsEmpty returns true when the holder no longer owns any shares
func (h *ShareHolder) IsEmpty() bool {
	return h.Shares.IsZero()
}
