package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Client talks to the weatherapi.com forecast endpoint. The query can be a
// city/landmark name or a "lat,lon" pair; the provider resolves both.
type Client struct {
	baseURL    string
	apiKey     string
	days       int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, days int, logger *zap.Logger) *Client {
	if days <= 0 {
		days = 3
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		days:       days,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Forecast fetches current conditions plus the daily forecast. A 400 from
// the provider means "no such place" and returns (nil, nil); transport
// failures and every other non-200 status, auth failures included, return
// an error.
func (c *Client) Forecast(ctx context.Context, query string) (*Report, error) {
	if query == "" {
		return nil, fmt.Errorf("location query is required for weather lookup")
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("days", strconv.Itoa(c.days))
	params.Set("aqi", "no")
	params.Set("alerts", "no")

	reqURL := c.baseURL + "/forecast.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		// The provider answers 400 for unknown places. Not a fault.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("Weather provider rejected location",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather provider returned status %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &report, nil
}

// ResolveName resolves a query to the provider's canonical place name. ""
// with a nil error means the provider knows no such place.
func (c *Client) ResolveName(ctx context.Context, query string) (string, error) {
	report, err := c.Forecast(ctx, query)
	if err != nil {
		return "", err
	}
	if report == nil {
		return "", nil
	}
	return report.Location.Name, nil
}
