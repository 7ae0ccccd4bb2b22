package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deckforge/pkg/ai"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// PexelsClient searches the Pexels photo API with one API key.
type PexelsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPexelsClient constructs a client with the provided API key.
func NewPexelsClient(apiKey string) (*PexelsClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("pexels api key required")
	}
	return &PexelsClient{
		apiKey:     apiKey,
		baseURL:    defaultPexelsBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *PexelsClient) WithBaseURL(baseURL string) *PexelsClient {
	c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return c
}

// Search returns the first matching photo URL, empty when nothing matched.
func (c *PexelsClient) Search(ctx context.Context, query, locale string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	if locale != "" {
		params.Set("locale", locale)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &ai.ProviderError{
			Provider: "pexels",
			Status:   resp.StatusCode,
			Class:    classifyImageStatus(resp.StatusCode),
			Message:  resp.Status,
		}
	}
	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("pexels decode: %w", err)
	}
	if len(payload.Photos) == 0 {
		return "", nil
	}
	src := payload.Photos[0].Src
	if src.Large != "" {
		return src.Large, nil
	}
	return src.Original, nil
}

func classifyImageStatus(status int) ai.ErrorClass {
	switch status {
	case 401:
		return ai.ErrClassKeyInvalid
	case 403, 429:
		return ai.ErrClassPermission
	default:
		return ai.ErrClassGeneric
	}
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Original string `json:"original"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}
