package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the actor lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientLiquidity is used when the pool cannot cover a request
	ErrCodeInsufficientLiquidity = "ERR_INSUFFICIENT_LIQUIDITY"
	// ErrCodeInsufficientShares is used when a holder's share balance is too low
	ErrCodeInsufficientShares = "ERR_INSUFFICIENT_SHARES"
	// ErrCodePoolPaused is used when the capital pool is paused
	ErrCodePoolPaused = "ERR_POOL_PAUSED"
	// ErrCodeSlippageExceeded is used when withdrawal proceeds fall below tolerance
	ErrCodeSlippageExceeded = "ERR_SLIPPAGE_EXCEEDED"
	// ErrCodeRebalanceCooldown is used when a rebalance is requested too soon
	ErrCodeRebalanceCooldown = "ERR_REBALANCE_COOLDOWN"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:          http.StatusUnprocessableEntity,
	ErrCodeInsufficientLiquidity: http.StatusUnprocessableEntity,
	ErrCodeInsufficientShares:    http.StatusUnprocessableEntity,
	ErrCodePoolPaused:            http.StatusUnprocessableEntity,
	ErrCodeSlippageExceeded:      http.StatusUnprocessableEntity,
	ErrCodeRebalanceCooldown:     http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to standardized API codes.
// Domain packages raise mnemonic codes (POOL_PAUSED, INVALID_AMOUNT); the
// API surface exposes the ERR_ prefixed form so clients see one vocabulary.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	// Pool
	"INSUFFICIENT_LIQUIDITY": ErrCodeInsufficientLiquidity,
	"INSUFFICIENT_SHARES":    ErrCodeInsufficientShares,
	"POOL_PAUSED":            ErrCodePoolPaused,

	// Treasury
	"SLIPPAGE_EXCEEDED":  ErrCodeSlippageExceeded,
	"REBALANCE_COOLDOWN": ErrCodeRebalanceCooldown,
	"DUPLICATE_STRATEGY": ErrCodeAlreadyExists,
	"UNKNOWN_STRATEGY":   ErrCodeNotFound,

	// Funding
	"ALREADY_FUNDED":      ErrCodeConflict,
	"ALREADY_REPAID":      ErrCodeConflict,
	"NOT_FUNDED":          ErrCodeInvalidState,
	"SETTLEMENT_MISMATCH": ErrCodeBusinessRule,
}

// businessRuleCodes lists domain codes that stay mnemonic on the wire but
// still map to 422; they carry more signal than a generic BUSINESS_RULE.
var businessRuleCodes = map[string]bool{
	"MAX_STRATEGIES":                true,
	"ASSET_MISMATCH":                true,
	"INSUFFICIENT_STRATEGY_BALANCE": true,
	"STRATEGY_NOT_DRAINED":          true,
	"NO_ACTIVE_STRATEGIES":          true,
	"ADAPTER_NOT_REGISTERED":        true,
	"ALREADY_PAUSED":                true,
	"NOT_PAUSED":                    true,
	"CONSERVATION_VIOLATION":        true,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// If the code is already in the new format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// GetHTTPStatusForDomainCode resolves a raw domain code to an HTTP status.
// Unmapped INVALID_/MISSING_ codes are treated as input errors, codes in
// the business-rule set as 422, everything else falls through to 500.
func GetHTTPStatusForDomainCode(code string) int {
	normalized := NormalizeErrorCode(code)
	if status, ok := ErrorCodeHTTPStatus[normalized]; ok {
		return status
	}
	if businessRuleCodes[code] {
		return http.StatusUnprocessableEntity
	}
	if len(code) > 8 && (code[:8] == "INVALID_" || code[:8] == "MISSING_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
