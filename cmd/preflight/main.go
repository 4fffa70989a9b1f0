// cmd/preflight/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/pushfailover/internal/config"
	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/probe"
)

func main() {
	path := flag.String("config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	resolve := flag.Bool("resolve", false, "also resolve every target host")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*path)
	if err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("push endpoint %s, interval %ds", cfg.API.URL, cfg.API.Interval))

	if confirm, on := domain.ConfirmInterval(cfg.API.Interval); on {
		ok("confirmation cycle every " + confirm.String())
	} else {
		warn(fmt.Sprintf("confirmation cycle disabled (5*%d-30 < 1)", cfg.API.Interval))
	}

	partial := make(map[string]bool)
	for _, name := range cfg.PartialFailover() {
		partial[name] = true
	}
	for _, t := range cfg.BuildTargets() {
		line := fmt.Sprintf("%s -> %s", t.Name, t.Addr())
		switch {
		case t.Failover != nil:
			ok(fmt.Sprintf("%s, failover %s over [%s]", line, t.Failover.Domain, strings.Join(t.Failover.Candidates, ", ")))
		case partial[t.Name]:
			warn(line + ", failover partially configured and disabled (need zone_id, dns_token, domain and cnames)")
		default:
			ok(line + ", no failover")
		}
		if *resolve && net.ParseIP(t.Host) == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if d := probe.DiagnoseResolve(ctx, t.Host); d.Class != probe.ResolveOK {
				msg := fmt.Sprintf("%s: host %s does not resolve (%s)", t.Name, t.Host, d.Class)
				if d.CNAME != "" {
					msg += ", cname " + d.CNAME
				}
				if len(d.Nameservers) > 0 {
					msg += ", ns " + strings.Join(d.Nameservers, " ")
				}
				warn(msg)
			}
			cancel()
		}
	}

	if len(cfg.Auth.AdminKeys) == 0 {
		warn("auth.admin_keys is empty; POST /api/targets/{name}/check is open.")
	}
	if len(cfg.Auth.PublicKeys) == 0 && len(cfg.Auth.AdminKeys) == 0 {
		warn("no API keys configured; read routes are open.")
	}
	if cfg.DatabaseURL == "" {
		warn("database_url empty; results are kept in memory only.")
	} else {
		ok("database_url present")
	}
	if cfg.Failover.RevertOnUpdateFailure {
		ok("failover.revert_on_update_failure enabled")
	}

	ok("preflight passed")
}
