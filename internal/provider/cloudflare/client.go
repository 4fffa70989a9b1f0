package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/resilience"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	defaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

// ErrRecordNotFound is returned by FindRecordID when no record carries the name.
var ErrRecordNotFound = errors.New("dns record not found")

// Client talks to the Cloudflare v4 API for a single zone.
type Client struct {
	apiToken   string
	zoneID     string
	baseURL    string
	httpClient *http.Client
	exec       failsafe.Executor[*http.Response]
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithBreaker(cfg resilience.BreakerConfig, logger *zap.Logger) Option {
	return func(c *Client) { c.exec = resilience.NewHTTPExecutor(cfg, logger) }
}

func NewClient(apiToken, zoneID string, opts ...Option) *Client {
	c := &Client{
		apiToken:   apiToken,
		zoneID:     zoneID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) ZoneID() string { return c.zoneID }

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := resilience.Do(ctx, c.exec, c.httpClient, req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("parse API response (status %d): %w", resp.StatusCode, err)
	}
	if !apiResp.Success {
		if len(apiResp.Errors) > 0 {
			return &apiResp, fmt.Errorf("cloudflare API error: %s (code: %d)", apiResp.Errors[0].Message, apiResp.Errors[0].Code)
		}
		return &apiResp, fmt.Errorf("cloudflare API request failed (status %d)", resp.StatusCode)
	}
	return &apiResp, nil
}

// ListDNSRecords returns every record in the zone, following pagination.
func (c *Client) ListDNSRecords(ctx context.Context) ([]DNSRecord, error) {
	base := fmt.Sprintf("/zones/%s/dns_records", c.zoneID)
	var all []DNSRecord
	for page := 1; ; page++ {
		resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s?page=%d&per_page=100", base, page), nil)
		if err != nil {
			return nil, err
		}
		var records []DNSRecord
		if len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, &records); err != nil {
				return nil, fmt.Errorf("parse DNS records: %w", err)
			}
		}
		all = append(all, records...)
		if resp.ResultInfo == nil || resp.ResultInfo.TotalPages <= page {
			return all, nil
		}
	}
}

// FindRecordID resolves the provider record id for name. Names compare exactly.
func (c *Client) FindRecordID(ctx context.Context, name string) (string, error) {
	records, err := c.ListDNSRecords(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if r.Name == name {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s in zone %s", ErrRecordNotFound, name, c.zoneID)
}

// UpdateDNSRecord overwrites the record with the given id.
func (c *Client) UpdateDNSRecord(ctx context.Context, recordID string, record DNSRecord) (*DNSRecord, error) {
	path := fmt.Sprintf("/zones/%s/dns_records/%s", c.zoneID, recordID)
	resp, err := c.doRequest(ctx, http.MethodPut, path, record)
	if err != nil {
		return nil, err
	}
	var updated DNSRecord
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &updated); err != nil {
			return nil, fmt.Errorf("parse DNS record: %w", err)
		}
	}
	return &updated, nil
}

// CNAME builds the record body used for failover updates.
func CNAME(name, target string, ttl int) DNSRecord {
	return DNSRecord{
		Type:    "CNAME",
		Name:    name,
		Content: target,
		TTL:     ttl,
		Proxied: false,
	}
}
