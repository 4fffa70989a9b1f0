package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// DefaultTimeout bounds every connection attempt.
const DefaultTimeout = 5 * time.Second

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type TCPProber struct {
	Logger  *zap.Logger
	Timeout time.Duration

	dial     dialFunc
	resolver lookuper
}

func NewTCPProber(logger *zap.Logger) *TCPProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &net.Dialer{}
	return &TCPProber{
		Logger:   logger,
		Timeout:  DefaultTimeout,
		dial:     d.DialContext,
		resolver: net.DefaultResolver,
	}
}

func (p *TCPProber) Probe(ctx context.Context, host string, port int) domain.Outcome {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()
	conn, err := p.dial(cctx, "tcp", addr)
	if err != nil {
		kind := Classify(err)
		if kind == domain.FailureResolve {
			// The diagnosis shares the dial budget so a failing probe never
			// outlives its timeout.
			d := diagnose(cctx, p.resolverOrDefault(), host)
			p.Logger.Warn("probe_resolve_error",
				zap.String("host", host),
				zap.String("class", string(d.Class)),
				zap.String("cname", d.CNAME),
				zap.Strings("nameservers", d.Nameservers),
				zap.Error(err),
			)
		}
		return domain.Down(kind, err.Error())
	}
	elapsed := time.Since(start).Milliseconds()
	_ = conn.Close()
	return domain.Up(elapsed)
}

func (p *TCPProber) resolverOrDefault() lookuper {
	if p.resolver == nil {
		return net.DefaultResolver
	}
	return p.resolver
}

// Classify maps a dial error onto a failure kind. All kinds count as down.
func Classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureNone
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return domain.FailureTimeout
		}
		return domain.FailureResolve
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.FailureRefused
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.FailureTimeout
	}
	return domain.FailureError
}
