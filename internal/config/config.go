package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/miekg/dns"
	"github.com/spf13/viper"

	"github.com/hamed0406/pushfailover/internal/domain"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type APIConfig struct {
	URL string `mapstructure:"url" json:"url"`
	// Interval is the fast cadence in seconds, shared by every target.
	Interval int `mapstructure:"interval" json:"interval"`
	// DNSToken is used by targets that do not set their own.
	DNSToken     string        `mapstructure:"dns_token" json:"dns_token"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout" json:"cycle_timeout"`
}

// AuthConfig guards the status API. With no keys configured every request
// is allowed.
type AuthConfig struct {
	PublicKeys     []string `mapstructure:"public_keys" json:"public_keys"`
	AdminKeys      []string `mapstructure:"admin_keys" json:"admin_keys"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
	PublicRPM      int      `mapstructure:"public_rpm" json:"public_rpm"`
	PublicBurst    int      `mapstructure:"public_burst" json:"public_burst"`
	AdminRPM       int      `mapstructure:"admin_rpm" json:"admin_rpm"`
	AdminBurst     int      `mapstructure:"admin_burst" json:"admin_burst"`
}

type FailoverConfig struct {
	TTL                   int  `mapstructure:"ttl" json:"ttl"`
	RevertOnUpdateFailure bool `mapstructure:"revert_on_update_failure" json:"revert_on_update_failure"`
}

type BreakerConfig struct {
	FailureThreshold uint          `mapstructure:"failure_threshold" json:"failure_threshold"`
	Delay            time.Duration `mapstructure:"delay" json:"delay"`
}

type TargetConfig struct {
	Name     string   `mapstructure:"name" json:"name"`
	Host     string   `mapstructure:"host" json:"host"`
	Port     int      `mapstructure:"port" json:"port"`
	Token    string   `mapstructure:"token" json:"token"`
	ZoneID   string   `mapstructure:"zone_id" json:"zone_id"`
	Domain   string   `mapstructure:"domain" json:"domain"`
	DNSToken string   `mapstructure:"dns_token" json:"dns_token"`
	CNAMEs   []string `mapstructure:"cnames" json:"cnames"`
}

type Config struct {
	Addr        string         `mapstructure:"addr" json:"addr"`
	LogDir      string         `mapstructure:"log_dir" json:"log_dir"`
	LogLevel    string         `mapstructure:"log_level" json:"log_level"`
	DatabaseURL string         `mapstructure:"database_url" json:"database_url"`
	API         APIConfig      `mapstructure:"api" json:"api"`
	Auth        AuthConfig     `mapstructure:"auth" json:"auth"`
	Failover    FailoverConfig `mapstructure:"failover" json:"failover"`
	Breaker     BreakerConfig  `mapstructure:"breaker" json:"breaker"`
	Targets     []TargetConfig `mapstructure:"targets" json:"targets"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("database_url", "")
	v.SetDefault("api.url", "")
	v.SetDefault("api.interval", 60)
	v.SetDefault("api.dns_token", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.cycle_timeout", "60s")
	v.SetDefault("auth.public_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("auth.allowed_origins", []string{})
	v.SetDefault("auth.public_rpm", 120)
	v.SetDefault("auth.public_burst", 60)
	v.SetDefault("auth.admin_rpm", 30)
	v.SetDefault("auth.admin_burst", 10)
	v.SetDefault("failover.ttl", 60)
	v.SetDefault("failover.revert_on_update_failure", false)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.delay", "30s")
}

// Load reads path, or config.yaml from ./config and . when path is empty.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.API.URL = strings.TrimRight(strings.TrimSpace(c.API.URL), "/")
	c.Auth.PublicKeys = splitList(c.Auth.PublicKeys)
	c.Auth.AdminKeys = splitList(c.Auth.AdminKeys)
	c.Auth.AllowedOrigins = splitList(c.Auth.AllowedOrigins)
	for i := range c.Targets {
		t := &c.Targets[i]
		t.Name = strings.TrimSpace(t.Name)
		t.Host = strings.TrimSpace(t.Host)
		t.Domain = strings.TrimSpace(t.Domain)
		t.CNAMEs = splitList(t.CNAMEs)
		if t.DNSToken == "" {
			t.DNSToken = c.API.DNSToken
		}
	}
}

// splitList accepts both YAML lists and comma-separated strings and drops
// empty entries.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogDir, validation.Required),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&c.API,
			validation.By(func(value interface{}) error {
				ac, ok := value.(APIConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an APIConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.URL, validation.Required, validation.By(validatePushURL)),
					validation.Field(&ac.Interval, validation.Required, validation.Min(1)),
					validation.Field(&ac.Timeout, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&ac.CycleTimeout, validation.Required, validation.Min(time.Millisecond)),
				)
			}),
		),
		validation.Field(&c.Failover,
			validation.By(func(value interface{}) error {
				fc, ok := value.(FailoverConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a FailoverConfig")
				}
				return validation.ValidateStruct(&fc,
					validation.Field(&fc.TTL, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Targets,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateTargetConfig)),
			validation.By(uniqueNames),
		),
	)
}

func validatePushURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if u.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}

func validateDomainName(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return validation.NewError("validation_invalid_domain", "must be a valid domain name")
	}
	return nil
}

func validateTargetConfig(value interface{}) error {
	tc, ok := value.(TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TargetConfig")
	}
	return validation.ValidateStruct(&tc,
		validation.Field(&tc.Name, validation.Required),
		validation.Field(&tc.Host, validation.Required),
		validation.Field(&tc.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&tc.Token, validation.Required),
		validation.Field(&tc.Domain, validation.By(validateDomainName)),
		validation.Field(&tc.CNAMEs, validation.Each(validation.By(validateDomainName))),
	)
}

func uniqueNames(value interface{}) error {
	targets, _ := value.([]TargetConfig)
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if _, dup := seen[t.Name]; dup {
			return validation.NewError("validation_duplicate_name", fmt.Sprintf("duplicate target name %q", t.Name))
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// BuildTargets builds the immutable runtime targets. Failover stays nil for a
// target unless zone, token, domain and at least one candidate are set.
func (c *Config) BuildTargets() []*domain.Target {
	out := make([]*domain.Target, 0, len(c.Targets))
	for _, tc := range c.Targets {
		out = append(out, &domain.Target{
			Name:            tc.Name,
			Host:            tc.Host,
			Port:            tc.Port,
			PushToken:       tc.Token,
			PushBaseURL:     c.API.URL,
			IntervalSeconds: c.API.Interval,
			Failover:        domain.NewFailover(tc.ZoneID, tc.DNSToken, tc.Domain, tc.CNAMEs),
		})
	}
	return out
}

// PartialFailover lists targets that set some failover fields but not all of
// them. Those run without failover.
func (c *Config) PartialFailover() []string {
	var names []string
	for _, tc := range c.Targets {
		set := 0
		for _, present := range []bool{tc.ZoneID != "", tc.DNSToken != "", tc.Domain != "", len(tc.CNAMEs) > 0} {
			if present {
				set++
			}
		}
		// A global dns_token alone does not count as a partial configuration.
		if set > 0 && set < 4 && !(set == 1 && tc.DNSToken != "" && tc.DNSToken == c.API.DNSToken) {
			names = append(names, tc.Name)
		}
	}
	return names
}
