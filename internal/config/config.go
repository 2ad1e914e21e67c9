// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
	Session  Session  `yaml:"session"`
	Verifier Verifier `yaml:"verifier"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Database holds the connection settings of the audit trail database.
type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

// ValKey holds the connection settings of the assertion replay guard.
type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix"`
}

// Session configures the lifecycle of a principal's session. The TTL is the
// policy ceiling of the credential itself; the idle timeout and the refresh
// interval are tuned independently since one bounds security expiry and the
// other bounds refresh cost.
type Session struct {
	TTL             time.Duration `yaml:"ttl" default:"12h"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" default:"30m"`
	RefreshInterval time.Duration `yaml:"refreshInterval" default:"60s"`

	SigningKey commoncfg.SourceRef `yaml:"signingKey"`

	CredentialCookieTemplate CookieTemplate `yaml:"credentialCookie"`
	RoleCookieTemplate       CookieTemplate `yaml:"roleCookie"`
	ActivityCookieTemplate   CookieTemplate `yaml:"activityCookie"`
}

// Verifier configures the external identity assertion verifier.
type Verifier struct {
	IssuerURL string        `yaml:"issuerURL"`
	Audience  string        `yaml:"audience"`
	RoleClaim string        `yaml:"roleClaim" default:"role"`
	Timeout   time.Duration `yaml:"timeout" default:"5s"`
}
