package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// Ledger errors
	ErrInsufficientLiquidity = NewDomainError("INSUFFICIENT_LIQUIDITY", "Insufficient liquid capital available")
	ErrInsufficientShares    = NewDomainError("INSUFFICIENT_SHARES", "Share balance is insufficient")
	ErrPoolPaused            = NewDomainError("POOL_PAUSED", "Capital pool is paused")

	// Treasury errors
	ErrDuplicateStrategy           = NewDomainError("DUPLICATE_STRATEGY", "Strategy is already registered")
	ErrUnknownStrategy             = NewDomainError("UNKNOWN_STRATEGY", "Strategy is not registered")
	ErrMaxStrategies               = NewDomainError("MAX_STRATEGIES", "Maximum strategy count reached")
	ErrAssetMismatch               = NewDomainError("ASSET_MISMATCH", "Strategy asset does not match the pool settlement asset")
	ErrInsufficientStrategyBalance = NewDomainError("INSUFFICIENT_STRATEGY_BALANCE", "Strategy balance is insufficient")
	ErrRebalanceCooldown           = NewDomainError("REBALANCE_COOLDOWN", "Rebalance requested before cooldown elapsed")

	// Funding errors
	ErrAlreadyFunded      = NewDomainError("ALREADY_FUNDED", "Invoice has already been funded")
	ErrAlreadyRepaid      = NewDomainError("ALREADY_REPAID", "Invoice has already been repaid")
	ErrNotFunded          = NewDomainError("NOT_FUNDED", "Invoice has not been funded")
	ErrSettlementMismatch = NewDomainError("SETTLEMENT_MISMATCH", "Settlement confirmation does not match the ledger's figures")
)
