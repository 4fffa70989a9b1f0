package cloudflare

import "encoding/json"

// DNSRecord represents a DNS record
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"` // 1 = automatic, otherwise seconds
	Proxied bool   `json:"proxied"`
}

// APIResponse is the generic Cloudflare API response wrapper
type APIResponse struct {
	Success    bool            `json:"success"`
	Errors     []APIError      `json:"errors,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	ResultInfo *ResultInfo     `json:"result_info,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
