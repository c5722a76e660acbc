// Package config is the configuration shared by the bridge server and the cli.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/dpgen"
	"qhare-bridge/internal/scrapers/odoo"
	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/internal/scrapers/solar"
	"qhare-bridge/lib/configutil"
	"qhare-bridge/lib/restyutil"
)

const (
	DefaultPort              = 3333
	DefaultRequestsPerSecond = 2
	DefaultTimeZone          = "Europe/Paris"
)

type QhareConfig struct {
	BaseUrl    string `json:"base_url"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UserAgent  string `json:"user_agent"`
	SignInPath string `json:"sign_in_path"`
	LeadPath   string `json:"lead_path"`

	ReauthMinutes  int `json:"reauth_minutes"`
	TimeoutSeconds int `json:"timeout_seconds"`
	// RequestsPerSecond defaults to DefaultRequestsPerSecond, 0 disables the limit.
	RequestsPerSecond *float64 `json:"requests_per_second"`
	CloudflareBypass  bool     `json:"cloudflare_bypass"`

	// KeepAlive is a cron spec on which the session is refreshed, empty disables it.
	KeepAlive string `json:"keep_alive"`
	// TimeZone is the zone KeepAlive is read in, defaults to DefaultTimeZone.
	TimeZone string `json:"time_zone"`

	SummaryLabels       []string `json:"summary_labels"`
	RequiredFields      []string `json:"required_fields"`
	DescriptionFallback string   `json:"description_fallback"`
}

type OdooConfig struct {
	SessionCookie string `json:"session_cookie"`
	UserAgent     string `json:"user_agent"`
}

type SolarConfig struct {
	ApiKey  string `json:"api_key"`
	BaseUrl string `json:"base_url"`
}

type GeneratorConfig struct {
	BaseUrl             string `json:"base_url"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
	OpenTimeoutSeconds  int    `json:"open_timeout_seconds"`
}

type Config struct {
	Port      int              `json:"port"`
	Qhare     QhareConfig      `json:"qhare"`
	Odoo      OdooConfig       `json:"odoo"`
	Solar     SolarConfig      `json:"solar"`
	Generator GeneratorConfig  `json:"generator"`
	Telemetry telemetry.Config `json:"telemetry"`
}

// Load reads the config file at path (and its .local override), then applies the
// environment overrides. A missing file is not an error, the environment alone may be
// enough.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no config file found, using the environment only", "path", path)
		cfg = Config{}
	} else if err != nil {
		return Config{}, err
	}

	err = cfg.applyEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	configutil.OverrideFromEnv(&c.Qhare.Email, "QHARE_EMAIL")
	configutil.OverrideFromEnv(&c.Qhare.Password, "QHARE_PASSWORD")
	configutil.OverrideFromEnv(&c.Qhare.UserAgent, "QHARE_USER_AGENT")
	configutil.OverrideFromEnv(&c.Solar.ApiKey, "GOOGLE_SOLAR_API_KEY")
	configutil.OverrideFromEnv(&c.Odoo.SessionCookie, "SESSION_COOKIE")
	configutil.OverrideFromEnv(&c.Generator.BaseUrl, "FASTAPI_URL")

	port := ""
	configutil.OverrideFromEnv(&port, "PORT")
	if port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		c.Port = parsed
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// DumpOutput returns the output http messages are dumped to for a given client, nil
// when dumping is disabled.
func (c Config) DumpOutput(name string) (restyutil.Output, error) {
	if c.Telemetry.DumpDir == "" {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(c.Telemetry.DumpDir, name))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c Config) SessionOptions(output restyutil.Output) qhare.SessionOptions {
	rps := float64(DefaultRequestsPerSecond)
	if c.Qhare.RequestsPerSecond != nil {
		rps = *c.Qhare.RequestsPerSecond
	}
	return qhare.SessionOptions{
		BaseUrl: c.Qhare.BaseUrl,
		Credentials: qhare.Credentials{
			Identifier: c.Qhare.Email,
			Secret:     c.Qhare.Password,
		},
		UserAgent:         c.Qhare.UserAgent,
		SignInPath:        c.Qhare.SignInPath,
		ReauthInterval:    time.Duration(c.Qhare.ReauthMinutes) * time.Minute,
		Timeout:           seconds(c.Qhare.TimeoutSeconds),
		RequestsPerSecond: rps,
		CloudflareBypass:  c.Qhare.CloudflareBypass,
		Output:            output,
	}
}

// Location is the time zone cron specs are read in.
func (c Config) Location() (*time.Location, error) {
	zone := c.Qhare.TimeZone
	if zone == "" {
		zone = DefaultTimeZone
	}
	return time.LoadLocation(zone)
}

func (c Config) ScraperOptions() qhare.ScraperOptions {
	return qhare.ScraperOptions{
		LeadPath:            c.Qhare.LeadPath,
		SummaryLabels:       c.Qhare.SummaryLabels,
		RequiredFields:      c.Qhare.RequiredFields,
		DescriptionFallback: c.Qhare.DescriptionFallback,
	}
}

func (c Config) OdooOptions(output restyutil.Output) odoo.Options {
	return odoo.Options{
		DefaultCookie: c.Odoo.SessionCookie,
		UserAgent:     c.Odoo.UserAgent,
		Output:        output,
	}
}

func (c Config) SolarOptions(output restyutil.Output) solar.Options {
	return solar.Options{
		ApiKey:  c.Solar.ApiKey,
		BaseUrl: c.Solar.BaseUrl,
		Output:  output,
	}
}

func (c Config) GeneratorOptions(output restyutil.Output) dpgen.Options {
	return dpgen.Options{
		BaseUrl:             c.Generator.BaseUrl,
		Timeout:             seconds(c.Generator.TimeoutSeconds),
		ConsecutiveFailures: c.Generator.ConsecutiveFailures,
		OpenTimeout:         seconds(c.Generator.OpenTimeoutSeconds),
		Output:              output,
	}
}
