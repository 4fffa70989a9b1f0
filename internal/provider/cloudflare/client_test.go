package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFindRecordID_MatchesExactName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/zones/zone-1/dns_records" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected auth header: %s", got)
		}
		writeAPIResponse(w, http.StatusOK, []DNSRecord{
			{ID: "rec-a", Type: "A", Name: "www.example.com", Content: "1.1.1.1"},
			{ID: "rec-b", Type: "CNAME", Name: "app.example.com", Content: "edge1.example.net"},
		}, &ResultInfo{Page: 1, TotalPages: 1})
	}))
	defer server.Close()

	client := NewClient("token", "zone-1", WithBaseURL(server.URL))
	id, err := client.FindRecordID(context.Background(), "app.example.com")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if id != "rec-b" {
		t.Fatalf("want rec-b, got %s", id)
	}

	_, err = client.FindRecordID(context.Background(), "missing.example.com")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("want ErrRecordNotFound, got %v", err)
	}
}

func TestListDNSRecords_FollowsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeAPIResponse(w, http.StatusOK, []DNSRecord{{ID: "r1", Name: "a.example.com"}}, &ResultInfo{Page: 1, TotalPages: 2})
		case "2":
			writeAPIResponse(w, http.StatusOK, []DNSRecord{{ID: "r2", Name: "b.example.com"}}, &ResultInfo{Page: 2, TotalPages: 2})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	client := NewClient("token", "zone-1", WithBaseURL(server.URL))
	records, err := client.ListDNSRecords(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[1].ID != "r2" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestListDNSRecords_SuccessFalseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "Authentication error")
	}))
	defer server.Close()

	client := NewClient("bad", "zone-1", WithBaseURL(server.URL))
	if _, err := client.ListDNSRecords(context.Background()); err == nil {
		t.Fatal("expected error when success=false")
	}
}

func TestUpdateDNSRecord_SendsCNAMEBody(t *testing.T) {
	var got DNSRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/zones/zone-1/dns_records/rec-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		got.ID = "rec-1"
		writeAPIResponse(w, http.StatusOK, got)
	}))
	defer server.Close()

	client := NewClient("token", "zone-1", WithBaseURL(server.URL))
	updated, err := client.UpdateDNSRecord(context.Background(), "rec-1", CNAME("app.example.com", "edge2.example.net", 60))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Type != "CNAME" || got.Name != "app.example.com" || got.Content != "edge2.example.net" || got.TTL != 60 || got.Proxied {
		t.Fatalf("unexpected body: %+v", got)
	}
	if updated.ID != "rec-1" {
		t.Fatalf("unexpected updated record: %+v", updated)
	}
}

func TestUpdateDNSRecord_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := NewClient("token", "zone-1", WithBaseURL(server.URL))
	if _, err := client.UpdateDNSRecord(context.Background(), "rec-1", CNAME("a", "b", 60)); err == nil {
		t.Fatal("expected parse error")
	}
}

func writeAPIResponse(w http.ResponseWriter, status int, result any, info ...*ResultInfo) {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	resp := APIResponse{Success: status < http.StatusBadRequest, Result: raw}
	if len(info) > 0 {
		resp.ResultInfo = info[0]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(err)
	}
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIResponse{
		Success: false,
		Errors:  []APIError{{Code: status, Message: message}},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(err)
	}
}
