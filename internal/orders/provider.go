package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProviderFailure = errors.New("provider request failed")

// ProviderResult is the provider's answer to a fulfillment request.
type ProviderResult struct {
	OrderID string
	// Status is the provider's own lifecycle value: wait, accept or
	// reject.
	Status string
	Price  decimal.Decimal
	// Raw keeps the provider response body for audit.
	Raw string
}

// Provider fulfills credit orders upstream.
type Provider interface {
	CreateOrder(ctx context.Context, providerProductID string, qty int, playerID, orderUUID string) (ProviderResult, error)
}

// HTTPProvider calls the upstream fulfillment API:
//
//	GET {base}/{providerProductID}/params?qty=N&playerId=X&order_uuid=U
//
// authenticated with an api-token header. Any non-2xx response, and any
// 2xx response whose body status is not "OK", is a provider failure.
type HTTPProvider struct {
	BaseURL  string
	APIToken string
	Client   *http.Client
}

func NewHTTPProvider(baseURL, apiToken string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		BaseURL:  baseURL,
		APIToken: apiToken,
		Client:   &http.Client{Timeout: timeout},
	}
}

type providerEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		OrderID json.Number `json:"order_id"`
		Status  string      `json:"status"`
		Price   string      `json:"price"`
	} `json:"data"`
}

func (p *HTTPProvider) CreateOrder(ctx context.Context, providerProductID string, qty int, playerID, orderUUID string) (ProviderResult, error) {
	q := url.Values{}
	q.Set("qty", strconv.Itoa(qty))
	q.Set("playerId", playerID)
	q.Set("order_uuid", orderUUID)
	endpoint := fmt.Sprintf("%s/%s/params?%s", p.BaseURL, url.PathEscape(providerProductID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	req.Header.Set("api-token", p.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ProviderResult{}, fmt.Errorf("%w: reading response: %v", ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProviderResult{}, fmt.Errorf("%w: http %d", ErrProviderFailure, resp.StatusCode)
	}

	var env providerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ProviderResult{}, fmt.Errorf("%w: invalid response body: %v", ErrProviderFailure, err)
	}
	if env.Status != "OK" {
		return ProviderResult{}, fmt.Errorf("%w: status %q", ErrProviderFailure, env.Status)
	}

	result := ProviderResult{
		OrderID: env.Data.OrderID.String(),
		Status:  env.Data.Status,
		Raw:     string(body),
	}
	if env.Data.Price != "" {
		if price, err := decimal.NewFromString(env.Data.Price); err == nil {
			result.Price = price
		}
	}
	return result, nil
}
