package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/failover"
	"github.com/hamed0406/pushfailover/internal/metrics"
	"github.com/hamed0406/pushfailover/internal/notify"
	"github.com/hamed0406/pushfailover/internal/provider/cloudflare"
	"github.com/hamed0406/pushfailover/internal/repo/memory"
)

// --- fakes ---

type staticProber struct {
	mu    sync.Mutex
	out   domain.Outcome
	calls int
}

func (p *staticProber) Probe(ctx context.Context, host string, port int) domain.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.out
}

func (p *staticProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// pushServer records every status push.
type pushServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
	query []url.Values
	code  int
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{code: http.StatusOK}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.paths = append(ps.paths, r.URL.Path)
		ps.query = append(ps.query, r.URL.Query())
		code := ps.code
		ps.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushServer) calls() []url.Values {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]url.Values(nil), ps.query...)
}

// dnsServer is a minimal Cloudflare zone holding one record.
type dnsServer struct {
	*httptest.Server
	mu      sync.Mutex
	lists   int
	updates []cloudflare.DNSRecord
}

func newDNSServer(t *testing.T, zone, recordID, name string) *dnsServer {
	t.Helper()
	ds := &dnsServer{}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds.mu.Lock()
		defer ds.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/zones/"+zone+"/dns_records":
			ds.lists++
			raw, _ := json.Marshal([]cloudflare.DNSRecord{
				{ID: "other", Type: "A", Name: "api." + name, Content: "192.0.2.1"},
				{ID: recordID, Type: "CNAME", Name: name, Content: "old.example.net"},
			})
			_ = json.NewEncoder(w).Encode(cloudflare.APIResponse{
				Success:    true,
				Result:     raw,
				ResultInfo: &cloudflare.ResultInfo{Page: 1, TotalPages: 1},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/zones/"+zone+"/dns_records/"+recordID:
			var rec cloudflare.DNSRecord
			_ = json.NewDecoder(r.Body).Decode(&rec)
			ds.updates = append(ds.updates, rec)
			raw, _ := json.Marshal(rec)
			_ = json.NewEncoder(w).Encode(cloudflare.APIResponse{Success: true, Result: raw})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(cloudflare.APIResponse{Success: false})
		}
	}))
	t.Cleanup(ds.Close)
	return ds
}

func (ds *dnsServer) counts() (lists int, updates []cloudflare.DNSRecord) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.lists, append([]cloudflare.DNSRecord(nil), ds.updates...)
}

func newCycle(t *testing.T, tgt *domain.Target, out domain.Outcome, dnsURL string) (*Cycle, *memory.Store) {
	t.Helper()
	log := zap.NewNop()
	store := memory.New(0)
	c := &Cycle{
		Target:   tgt,
		Prober:   &staticProber{out: out},
		Reporter: notify.NewPush(0, log),
		Results:  store,
		Metrics:  metrics.New(),
		Logger:   log,
	}
	if tgt.Failover != nil {
		cf := cloudflare.NewClient(tgt.Failover.Token, tgt.Failover.ZoneID, cloudflare.WithBaseURL(dnsURL))
		c.Failover = failover.NewController(tgt.Name, tgt.Failover, cf, log, failover.Options{})
	}
	return c, store
}

// --- end-to-end scenarios ---

func TestCycle_DownWithPool_RotatesAndReportsCurrentPool(t *testing.T) {
	push := newPushServer(t)
	dns := newDNSServer(t, "zone-1", "R", "www.example.com")

	tgt := &domain.Target{
		Name: "A", Host: "a.invalid", Port: 443,
		PushToken: "tok-a", PushBaseURL: push.URL, IntervalSeconds: 20,
		Failover: domain.NewFailover("zone-1", "cf-token", "www.example.com", []string{"c1", "c2", "c3"}),
	}
	c, store := newCycle(t, tgt, domain.Down(domain.FailureTimeout, "i/o timeout"), dns.URL)

	res := c.Run(context.Background())

	calls := push.calls()
	if len(calls) != 1 {
		t.Fatalf("want 1 push call, got %d", len(calls))
	}
	status := calls[0].Get("status")
	if !strings.Contains(status, "current: c1, next: c2") {
		t.Fatalf("status should name the pool before rotation, got %q", status)
	}
	if calls[0].Get("ping") != "-1" {
		t.Fatalf("want ping -1, got %q", calls[0].Get("ping"))
	}

	lists, updates := dns.counts()
	if lists != 1 || len(updates) != 1 {
		t.Fatalf("want 1 lookup and 1 update, got %d/%d", lists, len(updates))
	}
	u := updates[0]
	if u.Content != "c2" || u.Type != "CNAME" || u.Name != "www.example.com" || u.TTL != 60 || u.Proxied {
		t.Fatalf("unexpected update body: %+v", u)
	}

	if got := c.Failover.Candidates(); strings.Join(got, ",") != "c2,c3,c1" {
		t.Fatalf("want pool [c2 c3 c1], got %v", got)
	}
	if res.Rotation != string(failover.Rotated) || res.Up || !res.Pushed {
		t.Fatalf("unexpected result: %+v", res)
	}

	latest, _ := store.Latest(context.Background())
	if len(latest) != 1 || latest[0].Target != "A" {
		t.Fatalf("result not stored: %+v", latest)
	}
}

func TestCycle_DownWithoutDNSConfig_PushesOnly(t *testing.T) {
	push := newPushServer(t)
	dns := newDNSServer(t, "zone-1", "R", "www.example.com")

	tgt := &domain.Target{Name: "B", Host: "b.invalid", Port: 80, PushToken: "tok-b", PushBaseURL: push.URL, IntervalSeconds: 20}
	c, _ := newCycle(t, tgt, domain.Down(domain.FailureRefused, "connection refused"), dns.URL)

	res := c.Run(context.Background())

	calls := push.calls()
	if len(calls) != 1 {
		t.Fatalf("want 1 push call, got %d", len(calls))
	}
	if calls[0].Get("ping") != "-1" || calls[0].Get("status") != "down" {
		t.Fatalf("unexpected push query: %v", calls[0])
	}
	if lists, updates := dns.counts(); lists != 0 || len(updates) != 0 {
		t.Fatalf("want zero DNS calls, got %d/%d", lists, len(updates))
	}
	if res.Rotation != "" {
		t.Fatalf("no rotation expected, got %q", res.Rotation)
	}
}

func TestCycle_Up_ReportsLatencyAndSkipsDNS(t *testing.T) {
	push := newPushServer(t)
	dns := newDNSServer(t, "zone-1", "R", "www.example.com")

	tgt := &domain.Target{
		Name: "C", Host: "c.example.com", Port: 443,
		PushToken: "tok-c", PushBaseURL: push.URL, IntervalSeconds: 20,
		Failover: domain.NewFailover("zone-1", "cf-token", "www.example.com", []string{"c1", "c2"}),
	}
	c, _ := newCycle(t, tgt, domain.Up(42), dns.URL)

	res := c.Run(context.Background())

	calls := push.calls()
	if len(calls) != 1 {
		t.Fatalf("want 1 push call, got %d", len(calls))
	}
	q := calls[0]
	if q.Get("ping") != "42" || q.Get("status") != "up" || q.Get("msg") != "OK" {
		t.Fatalf("unexpected push query: %v", q)
	}
	if lists, updates := dns.counts(); lists != 0 || len(updates) != 0 {
		t.Fatalf("want zero DNS calls, got %d/%d", lists, len(updates))
	}
	if !res.Up || res.LatencyMS != 42 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCycle_PushFailureStillRunsFailover(t *testing.T) {
	push := newPushServer(t)
	push.mu.Lock()
	push.code = http.StatusBadGateway
	push.mu.Unlock()
	dns := newDNSServer(t, "zone-1", "R", "www.example.com")

	tgt := &domain.Target{
		Name: "A", Host: "a.invalid", Port: 443,
		PushToken: "tok-a", PushBaseURL: push.URL, IntervalSeconds: 20,
		Failover: domain.NewFailover("zone-1", "cf-token", "www.example.com", []string{"c1", "c2"}),
	}
	c, _ := newCycle(t, tgt, domain.Down(domain.FailureTimeout, ""), dns.URL)

	res := c.Run(context.Background())
	if res.Pushed {
		t.Fatal("push should be reported as failed")
	}
	if _, updates := dns.counts(); len(updates) != 1 {
		t.Fatalf("failover should still run, got %d updates", len(updates))
	}
}
