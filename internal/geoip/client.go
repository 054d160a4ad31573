package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client resolves a client address to a city using the ip-api.com JSON
// endpoint. Loopback addresses cannot be geolocated, so those short-circuit
// to the configured default city for local development.
type Client struct {
	baseURL     string
	defaultCity string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(baseURL, defaultCity string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		defaultCity: defaultCity,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	City    string `json:"city"`
	Message string `json:"message"`
}

// CityForIP returns the city for the given address, or "" when the provider
// cannot place it.
func (c *Client) CityForIP(ctx context.Context, ip string) (string, error) {
	if ip == "::1" || ip == "127.0.0.1" {
		return c.defaultCity, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ip, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geolocation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var lookup lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return "", fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if lookup.Status != "success" {
		c.logger.Debug("Geolocation lookup unsuccessful",
			zap.String("ip", ip),
			zap.String("message", lookup.Message))
		return "", nil
	}
	return lookup.City, nil
}
