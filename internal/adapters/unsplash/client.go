// Package unsplash looks up a landscape stock photo for a search phrase.
package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
)

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 10 * time.Second},
		// demo keys allow 50 requests per hour
		rl: rate.NewLimiter(rate.Every(72*time.Second), 5),
	}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchPhoto returns the first result's regular-size URL, or "" when the
// search has no results or no access key is configured.
func (c *Client) SearchPhoto(ctx context.Context, query string) (string, error) {
	if c.key == "" || strings.TrimSpace(query) == "" {
		return "", nil
	}
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("client_id", c.key)
	q.Set("orientation", "landscape")
	q.Set("per_page", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Version", "v1")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("unsplash", "/search/photos", 0, time.Since(start))
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("unsplash", "/search/photos", resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", fmt.Errorf("unsplash: %w", domain.ErrUnauthorized)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unsplash: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	if u := out.Results[0].URLs.Regular; u != "" {
		return u, nil
	}
	return out.Results[0].URLs.Full, nil
}
