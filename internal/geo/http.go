package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPResolver queries an ip-api.com style JSON endpoint:
// GET {base}/{ip} -> {"status":"success","countryCode":"US","city":...}.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver creates a resolver for the given provider base URL.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type providerResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	RegionName  string `json:"regionName"`
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to build geo provider request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo provider returned status %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Location{}, fmt.Errorf("failed to decode geo provider response: %w", err)
	}
	if pr.Status != "success" || pr.CountryCode == "" {
		return Location{}, fmt.Errorf("geo provider could not resolve %s", ip)
	}

	name := pr.City
	if pr.City != "" && pr.RegionName != "" {
		name = pr.City + ", " + pr.RegionName
	}

	return Location{CountryCode: pr.CountryCode, Name: name}, nil
}
