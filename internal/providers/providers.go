// Package providers implements the three outbound market-data clients
// the Market Context Builder fans out to: options, analytics, and
// liquidity. Each client issues one HTTP GET and decodes only the
// fields spec.md §3/§4.5 consumes; extra response fields are ignored.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RawOptionsResponse is the subset of the options-chain endpoint's
// response this engine consumes.
type RawOptionsResponse struct {
	PutVolume    float64 `json:"putVolume"`
	CallVolume   float64 `json:"callVolume"`
	IVPercentile float64 `json:"ivPercentile"`
	OptionVolume float64 `json:"optionVolume"`
	Chain        []StrikeOI `json:"chain,omitempty"`
}

// StrikeOI is one strike's open interest, used by the max-pain
// calculation when a detailed chain is available.
type StrikeOI struct {
	Strike       float64 `json:"strike"`
	CallOI       float64 `json:"callOI"`
	PutOI        float64 `json:"putOI"`
	Gamma        float64 `json:"gamma"`
}

// RawAnalyticsResponse is the subset of the analytics endpoint's daily
// time-series response this engine consumes.
type RawAnalyticsResponse struct {
	Closes  []float64 `json:"closes"`
	Highs   []float64 `json:"highs"`
	Lows    []float64 `json:"lows"`
	Volumes []float64 `json:"volumes"`
}

// RawLiquidityResponse is the subset of the quote/liquidity endpoint's
// response this engine consumes.
type RawLiquidityResponse struct {
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	BidSize     float64 `json:"bidSize"`
	AskSize     float64 `json:"askSize"`
	Volume      float64 `json:"volume"`
	AvgVolume20 float64 `json:"avgVolume20"`
}

// Client is the shared HTTP-fetch-and-decode primitive for all three
// providers: it issues the GET, and the caller supplies where to
// decode the body.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("providers: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("providers: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("providers: decode response: %w", err)
	}
	return nil
}

// HTTPError carries the non-2xx status code a provider returned, so
// callers can classify 401/4xx distinctly from network failures.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d", e.StatusCode)
}

// OptionsClient fetches the options chain + quote summary for a symbol.
type OptionsClient struct{ Client }

func (c *OptionsClient) Fetch(ctx context.Context, symbol string) (*RawOptionsResponse, error) {
	var out RawOptionsResponse
	if err := c.getJSON(ctx, "/options/"+symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyticsClient fetches the daily time series (closes, highs, lows,
// volumes); ATR(14) and RSI are derived from it, not fetched.
type AnalyticsClient struct{ Client }

func (c *AnalyticsClient) Fetch(ctx context.Context, symbol string) (*RawAnalyticsResponse, error) {
	var out RawAnalyticsResponse
	if err := c.getJSON(ctx, "/analytics/"+symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiquidityClient fetches the top-of-book quote and recent volume.
type LiquidityClient struct{ Client }

func (c *LiquidityClient) Fetch(ctx context.Context, symbol string) (*RawLiquidityResponse, error) {
	var out RawLiquidityResponse
	if err := c.getJSON(ctx, "/quote/"+symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
