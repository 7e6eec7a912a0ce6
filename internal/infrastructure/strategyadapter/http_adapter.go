package strategyadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/domain/treasury"
	"github.com/shopspring/decimal"
)

const (
	venueDepositPath     = "/v1/deposits"
	venueWithdrawPath    = "/v1/withdrawals"
	venueWithdrawAllPath = "/v1/withdrawals/all"
	venueValuePath       = "/v1/value"
	venueLimitsPath      = "/v1/limits"
	venueRatesPath       = "/v1/rates"
)

// HTTPAdapterConfig holds configuration for an HTTP-backed yield venue
type HTTPAdapterConfig struct {
	Name            string
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	InstantWithdraw bool
}

// Validate checks the adapter configuration
func (c *HTTPAdapterConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("strategy adapter name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("strategy adapter base URL is required")
	}
	return nil
}

// HTTPStrategyAdapter implements treasury.StrategyAdapter against a yield
// venue's REST API. All amounts on the wire are decimal strings in the
// pool's settlement currency.
type HTTPStrategyAdapter struct {
	config     HTTPAdapterConfig
	httpClient *http.Client
}

// NewHTTPStrategyAdapter creates a new HTTP-backed strategy adapter
func NewHTTPStrategyAdapter(config HTTPAdapterConfig) (*HTTPStrategyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStrategyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type venueAmountRequest struct {
	Amount string `json:"amount"`
	Asset  string `json:"asset"`
}

type venueAmountResponse struct {
	Amount string `json:"amount"`
}

type venueLimitsResponse struct {
	MaxInstantWithdraw string `json:"max_instant_withdraw"`
}

type venueRatesResponse struct {
	APYBps int64 `json:"apy_bps"`
}

type venueErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Name returns the strategy's registration key
func (a *HTTPStrategyAdapter) Name() string {
	return a.config.Name
}

// Asset returns the settlement asset the strategy operates in
func (a *HTTPStrategyAdapter) Asset() valueobject.Currency {
	return valueobject.SettlementCurrency
}

// SupportsInstantWithdraw reports whether capital can leave without delay
func (a *HTTPStrategyAdapter) SupportsInstantWithdraw() bool {
	return a.config.InstantWithdraw
}

// Deposit pushes capital into the venue
func (a *HTTPStrategyAdapter) Deposit(ctx context.Context, amount valueobject.Money) error {
	body := venueAmountRequest{
		Amount: amount.Amount().String(),
		Asset:  string(amount.Currency()),
	}
	_, err := a.doRequest(ctx, http.MethodPost, venueDepositPath, body)
	return err
}

// Withdraw pulls up to amount from the venue, returning what was received
func (a *HTTPStrategyAdapter) Withdraw(ctx context.Context, amount valueobject.Money) (valueobject.Money, error) {
	body := venueAmountRequest{
		Amount: amount.Amount().String(),
		Asset:  string(amount.Currency()),
	}
	respBody, err := a.doRequest(ctx, http.MethodPost, venueWithdrawPath, body)
	if err != nil {
		return valueobject.ZeroUSD(), err
	}
	return a.parseAmount(respBody)
}

// WithdrawAll drains the venue completely
func (a *HTTPStrategyAdapter) WithdrawAll(ctx context.Context) (valueobject.Money, error) {
	respBody, err := a.doRequest(ctx, http.MethodPost, venueWithdrawAllPath, nil)
	if err != nil {
		return valueobject.ZeroUSD(), err
	}
	return a.parseAmount(respBody)
}

// TotalValue returns the venue's live valuation of our position
func (a *HTTPStrategyAdapter) TotalValue(ctx context.Context) (valueobject.Money, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, venueValuePath, nil)
	if err != nil {
		return valueobject.ZeroUSD(), err
	}
	return a.parseAmount(respBody)
}

// MaxInstantWithdraw returns the ceiling on instant withdrawal
func (a *HTTPStrategyAdapter) MaxInstantWithdraw(ctx context.Context) (valueobject.Money, error) {
	if !a.config.InstantWithdraw {
		return valueobject.ZeroUSD(), nil
	}
	respBody, err := a.doRequest(ctx, http.MethodGet, venueLimitsPath, nil)
	if err != nil {
		return valueobject.ZeroUSD(), err
	}
	var limits venueLimitsResponse
	if err := json.Unmarshal(respBody, &limits); err != nil {
		return valueobject.ZeroUSD(), fmt.Errorf("%s: failed to parse limits response: %w", a.config.Name, err)
	}
	max, err := decimal.NewFromString(limits.MaxInstantWithdraw)
	if err != nil {
		return valueobject.ZeroUSD(), fmt.Errorf("%s: invalid limit amount %q: %w", a.config.Name, limits.MaxInstantWithdraw, err)
	}
	return valueobject.NewMoneyUSD(max), nil
}

// EstimatedAPYBps returns the venue's advertised annual yield in basis points
func (a *HTTPStrategyAdapter) EstimatedAPYBps(ctx context.Context) (int64, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, venueRatesPath, nil)
	if err != nil {
		return 0, err
	}
	var rates venueRatesResponse
	if err := json.Unmarshal(respBody, &rates); err != nil {
		return 0, fmt.Errorf("%s: failed to parse rates response: %w", a.config.Name, err)
	}
	return rates.APYBps, nil
}

// doRequest performs an HTTP request against the venue API
func (a *HTTPStrategyAdapter) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", a.config.Name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", a.config.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", a.config.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", a.config.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var venueErr venueErrorResponse
		if err := json.Unmarshal(respBody, &venueErr); err == nil && venueErr.Message != "" {
			return nil, fmt.Errorf("%s: venue error %s: %s", a.config.Name, venueErr.Code, venueErr.Message)
		}
		return nil, fmt.Errorf("%s: venue returned status %d", a.config.Name, resp.StatusCode)
	}

	return respBody, nil
}

// parseAmount decodes an amount payload into settlement-currency money
func (a *HTTPStrategyAdapter) parseAmount(respBody []byte) (valueobject.Money, error) {
	var payload venueAmountResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return valueobject.ZeroUSD(), fmt.Errorf("%s: failed to parse amount response: %w", a.config.Name, err)
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return valueobject.ZeroUSD(), fmt.Errorf("%s: invalid amount %q: %w", a.config.Name, payload.Amount, err)
	}
	return valueobject.NewMoneyUSD(amount), nil
}

// Ensure HTTPStrategyAdapter implements StrategyAdapter
var _ treasury.StrategyAdapter = (*HTTPStrategyAdapter)(nil)
