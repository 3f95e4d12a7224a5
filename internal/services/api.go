// API service for making raw HTTP requests to the catalog API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/reelx/internal/shared"
)

// APIService makes raw, authenticated GET requests to the catalog API for debugging.
// The API key is appended to every request; paths are relative to the base URL.
type APIService struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
}

// NewAPIService creates a raw catalog client from cfg.
func NewAPIService(cfg shared.CatalogConfig, client *http.Client) *APIService {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(orDefault(cfg.BaseURL, tmdbBaseURL), "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Get performs a GET request to path (which may carry its own query) and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	u, err := url.Parse(a.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid path %q: %v", shared.ErrInvalidArgument, path, err)
	}

	q := u.Query()
	if a.apiKey != "" {
		q.Set("api_key", a.apiKey)
	}
	if a.language != "" && q.Get("language") == "" {
		q.Set("language", a.language)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrNetworkUnavailable, redactKey(err, a.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
