// Package config defines the global configuration structure for the Labsite
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter; the signing secret, passcode, and admin allowlist are
// process-wide, read-only values that no component mutates at runtime.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
package config

import (
	"time"

	"labsite/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"labsite-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Lab      LabConfig
	Identity IdentityConfig
	Email    EmailConfig
	AWS      AWSConfig
	Security SecurityConfig
	Feature  FeatureConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// SiteURL is the public base URL for redirects and emails (no trailing slash).
	SiteURL string `envconfig:"SITE_URL" validate:"required,url"`
	// LabLoginPath is where the edge gate sends unauthenticated page requests.
	LabLoginPath string `envconfig:"LAB_LOGIN_PATH" default:"/lab/login"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// LabConfig holds the Lab authentication configuration: the session signing
// secret, the login passcode, and the admin email allowlist.
//
// SessionSecret and the passcode are deliberately NOT marked required: a
// process without them must still boot and serve public content, with every
// Lab authentication check failing closed. Only the passcode-issuance
// endpoint surfaces missing configuration as a 500.
type LabConfig struct {
	SessionSecret SecretString `envconfig:"LAB_SESSION_SECRET"`
	// Passcode is the plaintext login passcode. PasscodeHash (bcrypt) takes
	// precedence when both are set.
	Passcode     SecretString `envconfig:"LAB_PASSCODE"`
	PasscodeHash SecretString `envconfig:"LAB_PASSCODE_HASH"`

	// AdminEmails and AdminEmailsExtra are comma-joined email lists, merged
	// and normalized into the admin allowlist.
	AdminEmails      string `envconfig:"LAB_ADMIN_EMAILS"`
	AdminEmailsExtra string `envconfig:"LAB_ADMIN_EMAILS_EXTRA"`

	SessionTTL   time.Duration `envconfig:"LAB_SESSION_TTL" default:"168h"`
	MagicLinkTTL time.Duration `envconfig:"LAB_MAGIC_LINK_TTL" default:"15m"`
}

// IdentityConfig holds the hosted identity service (Supabase-compatible)
// lookup configuration.
type IdentityConfig struct {
	BaseURL string       `envconfig:"SUPABASE_URL" validate:"omitempty,url"`
	AnonKey SecretString `envconfig:"SUPABASE_ANON_KEY"`
	// AccessTokenCookie is the cookie carrying the identity access token.
	AccessTokenCookie string `envconfig:"IDENTITY_TOKEN_COOKIE" default:"sb-access-token"`
}

// EmailConfig holds email delivery provider credentials.
type EmailConfig struct {
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"lab@labsite.dev"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Labsite"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region        string `envconfig:"AWS_REGION" default:"us-east-1"`
	EmailQueueURL string `envconfig:"SQS_EMAIL_QUEUE" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`

	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Labsite"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// FeatureConfig holds kill switches for optional capabilities.
type FeatureConfig struct {
	EnableMagicLink bool `envconfig:"FEATURE_ENABLE_MAGIC_LINK" default:"true"`
	EnableCritique  bool `envconfig:"FEATURE_ENABLE_CRITIQUE" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure parsing environment values into their
	// target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
