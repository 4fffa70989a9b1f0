package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/resilience"
)

// AuditTimeLayout is the timestamp format of audit records.
const AuditTimeLayout = "2006.01.02 15:04:05"

// Push reports outcomes to a status-push endpoint: GET {base}/{token}?status=&msg=&ping=.
type Push struct {
	Client *http.Client
	Audit  *zap.Logger

	exec failsafe.Executor[*http.Response]
	now  func() time.Time
}

func NewPush(timeout time.Duration, audit *zap.Logger) *Push {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if audit == nil {
		audit = zap.NewNop()
	}
	return &Push{
		Client: &http.Client{Timeout: timeout},
		Audit:  audit,
		now:    time.Now,
	}
}

// WithBreaker guards the endpoint with a circuit breaker.
func (p *Push) WithBreaker(cfg resilience.BreakerConfig, logger *zap.Logger) *Push {
	p.exec = resilience.NewHTTPExecutor(cfg, logger)
	return p
}

func (p *Push) Report(ctx context.Context, t *domain.Target, out domain.Outcome, pool domain.PoolSnapshot) (Receipt, error) {
	rc, err := p.send(ctx, t, out, pool)
	p.audit(t, out, rc, err)
	return rc, err
}

func (p *Push) send(ctx context.Context, t *domain.Target, out domain.Outcome, pool domain.PoolSnapshot) (Receipt, error) {
	u, err := pushURL(t.PushBaseURL, t.PushToken, url.Values{
		"status": {StatusLine(out, pool)},
		"msg":    {Message(out)},
		"ping":   {strconv.FormatInt(out.Ping(), 10)},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", domain.ErrPushFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", domain.ErrPushFailure, err)
	}
	resp, err := resilience.Do(ctx, p.exec, p.Client, req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return Receipt{}, fmt.Errorf("%w: %v", domain.ErrPushFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	rc := Receipt{StatusCode: resp.StatusCode, Body: string(body)}
	if err != nil {
		return rc, fmt.Errorf("%w: read body: %v", domain.ErrPushFailure, err)
	}
	if resp.StatusCode/100 != 2 {
		return rc, fmt.Errorf("%w: non-2xx %s", domain.ErrPushFailure, resp.Status)
	}
	return rc, nil
}

func (p *Push) audit(t *domain.Target, out domain.Outcome, rc Receipt, err error) {
	fields := []zap.Field{
		zap.String("name", t.Name),
		zap.Int64("ping", out.Ping()),
		responseField(rc.Body),
		zap.String("time", p.now().Format(AuditTimeLayout)),
	}
	if err != nil {
		p.Audit.Error("push_failed", append(fields, zap.Error(err))...)
		return
	}
	p.Audit.Info("push", fields...)
}

// responseField logs the body as structured JSON when it parses.
func responseField(body string) zap.Field {
	var v any
	if body != "" && json.Unmarshal([]byte(body), &v) == nil {
		return zap.Any("response", v)
	}
	return zap.String("response", body)
}

func pushURL(base, token string, q url.Values) (string, error) {
	if base == "" {
		return "", fmt.Errorf("empty push base url")
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + url.PathEscape(token))
	if err != nil {
		return "", err
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
