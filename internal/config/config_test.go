package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hamed0406/pushfailover/internal/config"
)

const validConfig = `
api:
  url: "https://status.example.com/api/push/"
  interval: 20
  dns_token: "global-token"

targets:
  - name: web
    host: 203.0.113.10
    port: 443
    token: push-web
    zone_id: zone-1
    domain: www.example.com
    cnames: "a.example.net, b.example.net,c.example.net"
  - name: db
    host: db.internal
    port: 5432
    token: push-db
`

var _ = Describe("Config", func() {
	var (
		tempDir string
		path    string
	)

	write := func(content string) {
		path = filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("API_URL")
		os.Unsetenv("API_INTERVAL")
		os.Unsetenv("LOG_DIR")
	})

	Describe("Load", func() {
		Context("with a valid config file", func() {
			BeforeEach(func() { write(validConfig) })

			It("loads targets and defaults", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.API.URL).To(Equal("https://status.example.com/api/push"))
				Expect(cfg.API.Interval).To(Equal(20))
				Expect(cfg.API.Timeout).To(Equal(10 * time.Second))
				Expect(cfg.Failover.TTL).To(Equal(60))
				Expect(cfg.Failover.RevertOnUpdateFailure).To(BeFalse())
				Expect(cfg.Targets).To(HaveLen(2))
			})

			It("splits and trims comma separated candidates", func() {
				cfg, _ := config.Load(path)
				Expect(cfg.Targets[0].CNAMEs).To(Equal([]string{"a.example.net", "b.example.net", "c.example.net"}))
			})

			It("falls back to the global dns token", func() {
				cfg, _ := config.Load(path)
				Expect(cfg.Targets[0].DNSToken).To(Equal("global-token"))
			})

			It("builds failover only for fully configured targets", func() {
				cfg, _ := config.Load(path)
				targets := cfg.BuildTargets()
				Expect(targets).To(HaveLen(2))
				Expect(targets[0].Failover).NotTo(BeNil())
				Expect(targets[0].Failover.Candidates).To(HaveLen(3))
				Expect(targets[0].PushBaseURL).To(Equal("https://status.example.com/api/push"))
				Expect(targets[1].Failover).To(BeNil())
				Expect(cfg.PartialFailover()).To(BeEmpty())
			})

			It("lets the environment override the file", func() {
				os.Setenv("API_INTERVAL", "45")
				os.Setenv("LOG_DIR", "/var/log/pushfailover")
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.API.Interval).To(Equal(45))
				Expect(cfg.LogDir).To(Equal("/var/log/pushfailover"))
			})
		})

		Context("with candidates given as a list", func() {
			BeforeEach(func() {
				write(`
api: {url: "http://push.local", interval: 10}
targets:
  - name: web
    host: web.local
    port: 80
    token: t
    zone_id: z
    dns_token: d
    domain: www.example.com
    cnames: [a.example.net, b.example.net]
`)
			})

			It("accepts the list form", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Targets[0].CNAMEs).To(Equal([]string{"a.example.net", "b.example.net"}))
			})
		})

		Context("with a partial failover section", func() {
			BeforeEach(func() {
				write(`
api: {url: "http://push.local", interval: 10}
targets:
  - name: web
    host: web.local
    port: 80
    token: t
    zone_id: z
    domain: www.example.com
`)
			})

			It("disables failover without failing", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.BuildTargets()[0].Failover).To(BeNil())
				Expect(cfg.PartialFailover()).To(ConsistOf("web"))
			})
		})

		Context("with invalid content", func() {
			It("rejects a missing push url", func() {
				write(`
api: {interval: 10}
targets: [{name: web, host: web.local, port: 80, token: t}]
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(ContainSubstring("url")))
			})

			It("rejects an out of range port", func() {
				write(`
api: {url: "http://push.local", interval: 10}
targets: [{name: web, host: web.local, port: 70000, token: t}]
`)
				_, err := config.Load(path)
				Expect(err).To(HaveOccurred())
			})

			It("rejects malformed candidate names", func() {
				write(`
api: {url: "http://push.local", interval: 10}
targets:
  - {name: web, host: web.local, port: 80, token: t, cnames: "ok.example.net,bad..name"}
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(ContainSubstring("cnames")))
			})

			It("rejects duplicate target names", func() {
				write(`
api: {url: "http://push.local", interval: 10}
targets:
  - {name: web, host: a.local, port: 80, token: t}
  - {name: web, host: b.local, port: 80, token: t}
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(ContainSubstring("duplicate")))
			})

			It("rejects a config without targets", func() {
				write(`api: {url: "http://push.local", interval: 10}`)
				_, err := config.Load(path)
				Expect(err).To(HaveOccurred())
			})

			It("fails when an explicit file is missing", func() {
				_, err := config.Load(filepath.Join(tempDir, "nope.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
