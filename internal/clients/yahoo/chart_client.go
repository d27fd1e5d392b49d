// Package yahoo provides daily price sources backed by Yahoo Finance.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoData is returned when Yahoo has no bar for the requested window
var ErrNoData = domain.ErrNoData

const defaultBaseURL = "https://query1.finance.yahoo.com"

// ChartClient fetches daily bars from the Yahoo v8 chart endpoint
type ChartClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// ChartOption customises a ChartClient
type ChartOption func(*ChartClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) ChartOption {
	return func(cc *ChartClient) { cc.client = c }
}

// WithRetries sets how many attempts are made on 429/5xx responses and the base backoff
func WithRetries(attempts int, backoff time.Duration) ChartOption {
	return func(cc *ChartClient) {
		if attempts > 0 {
			cc.maxRetries = attempts
		}
		cc.backoff = backoff
	}
}

// NewChartClient creates a chart client. An empty baseURL uses Yahoo's public host.
func NewChartClient(baseURL string, log zerolog.Logger, opts ...ChartOption) *ChartClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &ChartClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		log:        log.With().Str("client", "yahoo-chart").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the parts of the v8 chart payload we read.
// Price arrays hold nulls for bars Yahoo could not fill.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				GMTOffset            int    `json:"gmtoffset"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *chartError `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch returns the daily bars for symbol in [start, end)
func (c *ChartClient) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse chart response for %s (status %d): %w", symbol, status, err)
	}

	if payload.Chart.Error != nil {
		if isNoDataError(payload.Chart.Error) {
			return nil, fmt.Errorf("%w: %s: %s", ErrNoData, symbol, payload.Chart.Error.Description)
		}
		return nil, fmt.Errorf("yahoo chart error for %s: %s: %s", symbol, payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart returned status %d for %s", status, symbol)
	}

	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	result := payload.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	quote := result.Indicators.Quote[0]

	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, okO := at(quote.Open, i)
		high, okH := at(quote.High, i)
		low, okL := at(quote.Low, i)
		closePrice, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		bars = append(bars, domain.Bar{
			Date:  time.Unix(ts, 0).In(loc),
			Open:  open,
			High:  high,
			Low:   low,
			Close: closePrice,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched chart bars")
	return bars, nil
}

// get performs the request, retrying 429 and 5xx responses with exponential backoff.
// Other 4xx bodies are returned to the caller because Yahoo reports missing data that way.
func (c *ChartClient) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<uint(attempt-1))
			c.log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("wait", wait).Msg("Chart request failed, retrying")
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// exchangeLocation resolves the exchange zone so bar timestamps land on the exchange's calendar date
func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// isNoDataError matches unknown symbols and windows before a symbol's first trading day.
// Yahoo reports the latter as "Bad Request: Data doesn't exist for startDate = ..., endDate = ...".
func isNoDataError(e *chartError) bool {
	return e.Code == "Not Found" || strings.HasPrefix(e.Description, "Data doesn't exist")
}
