// Package crmapi talks to the CRM REST backend (cities, leads, proposals, mail).
package crmapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/session"
)

type Client struct {
	base string
	hc   *http.Client
	sess *session.Session
	rl   *rate.Limiter
}

func New(base string, sess *session.Session, rps int) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid CRM base URL %q", base)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		sess: sess,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- auth ----

// Login exchanges credentials for a bearer token. It does not touch the session;
// the caller decides when the session starts.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/users/login", "/api/users/login", in, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("crm: login returned no token")
	}
	return out.Token, nil
}

// ---- cities & catalog ----

func (c *Client) SearchCities(ctx context.Context, query string) ([]map[string]any, error) {
	var out []map[string]any
	p := "/api/cities/search?query=" + url.QueryEscape(query)
	return out, c.get(ctx, p, "/api/cities/search", &out)
}

// CityHotels accepts both {"hotels":[...]} and a bare array.
func (c *Client) CityHotels(ctx context.Context, city string) ([]map[string]any, error) {
	return c.listUnder(ctx, "/api/cities/"+url.PathEscape(city)+"/hotels", "/api/cities/:city/hotels", "hotels")
}

// CityActivities accepts both {"activities":[...]} and a bare array.
func (c *Client) CityActivities(ctx context.Context, city string) ([]map[string]any, error) {
	return c.listUnder(ctx, "/api/cities/"+url.PathEscape(city)+"/activities", "/api/cities/:city/activities", "activities")
}

func (c *Client) listUnder(ctx context.Context, path, endpoint, key string) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, endpoint, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []map[string]any
	if raw[0] == '[' {
		return out, json.Unmarshal(raw, &out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	return out, json.Unmarshal(inner, &out)
}

// ---- proposals ----

func (c *Client) ListProposals(ctx context.Context) ([]domain.Proposal, error) {
	var out []domain.Proposal
	return out, c.get(ctx, "/api/proposals", "/api/proposals", &out)
}

func (c *Client) GetProposal(ctx context.Context, id string) (domain.Proposal, error) {
	var out domain.Proposal
	return out, c.get(ctx, "/api/proposals/"+url.PathEscape(id), "/api/proposals/:id", &out)
}

func (c *Client) CreateProposal(ctx context.Context, p domain.Proposal) (string, error) {
	var out struct {
		ID string `json:"_id"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/proposals", "/api/proposals", p, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("crm: no proposal ID returned from server")
	}
	return out.ID, nil
}

func (c *Client) UpdateProposal(ctx context.Context, p domain.Proposal) (domain.Proposal, error) {
	if p.ID == "" {
		return domain.Proposal{}, fmt.Errorf("%w: proposal id is required", domain.ErrValidation)
	}
	var out domain.Proposal
	return out, c.send(ctx, http.MethodPut, "/api/proposals/"+url.PathEscape(p.ID), "/api/proposals/:id", p, &out)
}

// ---- leads ----

func (c *Client) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	var out []domain.Lead
	return out, c.get(ctx, "/api/leads", "/api/leads", &out)
}

func (c *Client) SearchLeads(ctx context.Context, q string) ([]domain.Lead, error) {
	var out []domain.Lead
	return out, c.get(ctx, "/api/leads/search/advanced?q="+url.QueryEscape(q), "/api/leads/search/advanced", &out)
}

func (c *Client) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	var out domain.Lead
	return out, c.get(ctx, "/api/leads/"+url.PathEscape(id), "/api/leads/:id", &out)
}

func (c *Client) CreateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	var out domain.Lead
	return out, c.send(ctx, http.MethodPost, "/api/leads", "/api/leads", l, &out)
}

func (c *Client) UpdateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	var out domain.Lead
	return out, c.send(ctx, http.MethodPut, "/api/leads/"+url.PathEscape(l.ID), "/api/leads/:id", l, &out)
}

func (c *Client) ListMessages(ctx context.Context, leadID string) ([]domain.LeadMessage, error) {
	var out []domain.LeadMessage
	return out, c.get(ctx, "/api/leads/"+url.PathEscape(leadID)+"/messages", "/api/leads/:id/messages", &out)
}

func (c *Client) PostMessage(ctx context.Context, leadID string, m domain.LeadMessage) (domain.LeadMessage, error) {
	var out domain.LeadMessage
	p := "/api/leads/" + url.PathEscape(leadID) + "/messages"
	return out, c.send(ctx, http.MethodPost, p, "/api/leads/:id/messages", m, &out)
}

// UploadLeads forwards a spreadsheet for bulk import as multipart field "file".
func (c *Client) UploadLeads(ctx context.Context, filename string, r io.Reader) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out map[string]any
	err = c.do(ctx, http.MethodPost, "/api/leads/upload", "/api/leads/upload", &buf, mw.FormDataContentType(), &out)
	return out, err
}

// ---- mail ----

// SendEmail posts once; mail is never retried.
func (c *Client) SendEmail(ctx context.Context, e domain.Email) error {
	return c.send(ctx, http.MethodPost, "/api/sendemail", "/api/sendemail", e, nil)
}

// ---- Internals ----

// send marshals in and performs a single non-idempotent request.
func (c *Client) send(ctx context.Context, method, path, endpoint string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, endpoint, bytes.NewReader(b), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body io.Reader, contentType string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	c.headers(req)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("crm", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("crm", endpoint, resp.StatusCode, time.Since(start))
	return decode(resp, out)
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, path, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return err
		}
		c.headers(req)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("crm", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("crm", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("crm: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		default:
			err := decode(resp, out)
			resp.Body.Close()
			return err
		}
	}
	return lastErr
}

func (c *Client) headers(req *http.Request) {
	if tok := c.sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "proposal-desk/1.0")
}

// decode maps the status to a domain error or decodes the JSON body into out.
func decode(resp *http.Response, out any) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNoContent:
		io.Copy(io.Discard, resp.Body)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("crm: %w", domain.ErrNotFound)
	case http.StatusUnauthorized:
		return fmt.Errorf("crm: %w", domain.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("crm: %w", domain.ErrForbidden)
	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("crm: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
