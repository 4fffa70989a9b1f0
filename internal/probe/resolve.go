package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// ResolveClass summarizes why a host name did not resolve.
type ResolveClass string

const (
	ResolveOK          ResolveClass = "resolves"
	ResolveNXDomain    ResolveClass = "nxdomain"
	ResolveNoAddress   ResolveClass = "no_address"
	ResolveServFail    ResolveClass = "servfail_or_timeout"
	ResolveInvalidName ResolveClass = "invalid_name"
)

// Resolution is the diagnosis logged when a probe fails to resolve its host.
type Resolution struct {
	Host        string
	Class       ResolveClass
	CNAME       string
	Nameservers []string
	Err         string
}

var resolveTimeout = 3 * time.Second

type lookuper interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DiagnoseResolve looks the host up again and tells an unknown name apart
// from a zone without address records or an unreachable resolver.
func DiagnoseResolve(ctx context.Context, host string) Resolution {
	return diagnose(ctx, net.DefaultResolver, host)
}

func diagnose(ctx context.Context, r lookuper, host string) Resolution {
	res := Resolution{Host: strings.TrimSpace(host)}
	if res.Host == "" || strings.Contains(res.Host, "://") || strings.ContainsAny(res.Host, " /") {
		res.Class = ResolveInvalidName
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	addrs, err := r.LookupIPAddr(ctx, res.Host)
	if err == nil && len(addrs) > 0 {
		res.Class = ResolveOK
		return res
	}
	if err != nil {
		res.Err = err.Error()
		var de *net.DNSError
		switch {
		case errors.As(err, &de) && de.IsNotFound:
			res.Class = ResolveNXDomain
		case errors.As(err, &de) && (de.IsTemporary || de.IsTimeout):
			res.Class = ResolveServFail
		}
	}

	if cname, err := r.LookupCNAME(ctx, res.Host); err == nil && !strings.EqualFold(cname, res.Host+".") {
		res.CNAME = strings.TrimSuffix(cname, ".")
	}
	if ns, err := r.LookupNS(ctx, res.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			res.Nameservers = append(res.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		// The zone exists, it just has no address for this name.
		if res.Class == ResolveNXDomain || res.Class == "" {
			res.Class = ResolveNoAddress
		}
	}

	if res.Class == "" {
		if res.Err != "" {
			res.Class = ResolveServFail
		} else {
			res.Class = ResolveNXDomain
		}
	}
	return res
}
