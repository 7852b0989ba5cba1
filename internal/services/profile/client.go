// Package profile wraps the professional-profile lookup API used to enrich
// participants that carry a profile URL.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"herald/internal/config"
	"herald/internal/services"
)

// Profile is the subset of a lookup response the pipeline uses.
type Profile struct {
	FullName   string `json:"full_name"`
	Occupation string `json:"occupation"`
	Headline   string `json:"headline"`
	Summary    string `json:"summary"`
	Country    string `json:"country_full_name"`
	City       string `json:"city"`
}

// Client calls a ProxyCurl-compatible profile endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a profile client from configuration.
func NewClient(cfg config.Profile) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Lookup fetches the public profile behind a profile URL.
func (c *Client) Lookup(ctx context.Context, profileURL string) (*Profile, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "profile lookup", "profile.api_key is not set", nil)
	}
	if strings.TrimSpace(profileURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "profile lookup", "profile URL is empty", nil)
	}

	params := url.Values{}
	params.Set("url", profileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/linkedin?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "", "profile lookup", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "profile lookup", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "", "profile lookup", "no profile for "+profileURL, nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "", "profile lookup", "status "+resp.Status, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "", "profile lookup", "status "+resp.Status, nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		detail := fmt.Sprintf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))
		return nil, services.Wrap(services.ErrExternal, "", "profile lookup", detail, nil)
	}

	var parsed Profile
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(services.ErrExternal, "", "profile lookup", "decode response", err)
	}
	return &parsed, nil
}
