package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
)

// TokenHeader carries the Cachet API token on outbound calls.
const TokenHeader = "X-Cachet-Token"

const componentsPath = "/api/v1/components"

// CachetClient wraps the Cachet component API.
type CachetClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCachetClient constructs a client targeting the configured Cachet instance.
func NewCachetClient(baseURL string, timeout time.Duration) *CachetClient {
	return &CachetClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the normalised Cachet base URL.
func (c *CachetClient) BaseURL() string {
	return c.baseURL
}

// UpdateComponentStatus sets the status of one component and returns the HTTP status code
// Cachet answered with. Any answer from Cachet, including 4xx and 5xx, is returned without
// an error; only failures to obtain an answer are errors, and those wrap models.ErrTransport.
func (c *CachetClient) UpdateComponentStatus(ctx context.Context, token string, component, status int) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("cachet client not initialised: %w", models.ErrTransport)
	}
	endpoint := c.componentURL(component)
	if endpoint == "" {
		return 0, fmt.Errorf("cachet base URL not configured: %w", models.ErrTransport)
	}

	code, err := c.putJSON(ctx, endpoint, token, map[string]int{"status": status})
	if err != nil {
		return 0, fmt.Errorf("cachet component %d update failed: %w: %w", component, models.ErrTransport, err)
	}
	return code, nil
}

func (c *CachetClient) componentURL(component int) string {
	return c.resolvePath(componentsPath + "/" + strconv.Itoa(component))
}

func (c *CachetClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *CachetClient) putJSON(ctx context.Context, endpoint, token string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the body is not part of the outcome.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}
