/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package config provides structures and functions for loading and managing server configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"

	"github.com/asgardeo/oidcengine/internal/system/log"
)

// ServerConfig holds the server configuration details.
type ServerConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	HTTPOnly bool   `yaml:"http_only"`
}

// SecurityConfig holds the security configuration details.
type SecurityConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DataSource holds the individual database connection details.
type DataSource struct {
	Type            string `yaml:"type" validate:"omitempty,oneof=postgres sqlite"`
	Hostname        string `yaml:"hostname"`
	Port            int    `yaml:"port"`
	Name            string `yaml:"name"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"sslmode"`
	Path            string `yaml:"path"`
	Options         string `yaml:"options"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// DatabaseConfig holds the database configuration details.
type DatabaseConfig struct {
	Runtime DataSource `yaml:"runtime"`
}

// RedisConfig holds the redis connection details.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig selects the backend used for clients and tokens.
type StorageConfig struct {
	Type string `yaml:"type" validate:"oneof=memory redis database"`
}

// TokenLifetimeConfig holds the validity period of a token kind in seconds.
type TokenLifetimeConfig struct {
	ValidityPeriod int64 `yaml:"validity_period" validate:"gte=0"`
}

// RefreshTokenConfig holds the refresh token configuration.
type RefreshTokenConfig struct {
	ValidityPeriod int64 `yaml:"validity_period" validate:"gte=0"`
	RenewOnGrant   bool  `yaml:"renew_on_grant"`
}

// EncryptionConfig holds the JWE settings shared by ID tokens and request objects.
type EncryptionConfig struct {
	Enabled             bool     `yaml:"enabled"`
	KeyAlgorithms       []string `yaml:"key_algorithms"`
	ContentEncryptions  []string `yaml:"content_encryptions"`
	DecryptionKeyFile   string   `yaml:"decryption_key_file"`
	DecryptionKeyID     string   `yaml:"decryption_key_id"`
	DecryptionAlgorithm string   `yaml:"decryption_algorithm"`
}

// IDTokenConfig holds the ID token configuration.
type IDTokenConfig struct {
	ValidityPeriod int64            `yaml:"validity_period" validate:"gte=0"`
	Encryption     EncryptionConfig `yaml:"encryption"`
}

// PKCEConfig holds the PKCE configuration.
type PKCEConfig struct {
	EnforceForPublicClients bool `yaml:"enforce_for_public_clients"`
	AllowPlain              bool `yaml:"allow_plain"`
}

// RequestObjectConfig holds the configuration for request and request_uri parameters.
type RequestObjectConfig struct {
	Enabled          bool             `yaml:"enabled"`
	AllowRequestURI  bool             `yaml:"allow_request_uri"`
	AllowUnsigned    bool             `yaml:"allow_unsigned"`
	MaxRequestURILen int              `yaml:"max_request_uri_length"`
	Encryption       EncryptionConfig `yaml:"encryption"`
}

// AuthorizationConfig holds the authorization endpoint configuration.
type AuthorizationConfig struct {
	EnforceState              bool                `yaml:"enforce_state"`
	AllowResponseModeParam    bool                `yaml:"allow_response_mode_parameter"`
	EnforceSecuredRedirectURI bool                `yaml:"enforce_secured_redirect_uri"`
	UserHeader                string              `yaml:"user_header"`
	RequestObject             RequestObjectConfig `yaml:"request_object"`
}

// BearerConfig holds the bearer token type configuration.
type BearerConfig struct {
	Precedence []string `yaml:"precedence" validate:"dive,oneof=header body query"`
}

// MACConfig holds the MAC token type configuration.
type MACConfig struct {
	Algorithm         string `yaml:"algorithm" validate:"omitempty,oneof=hmac-sha-1 hmac-sha-256"`
	TimestampLifetime int64  `yaml:"timestamp_lifetime" validate:"gte=0"`
}

// TokenTypeConfig holds the token type configuration.
type TokenTypeConfig struct {
	Default string       `yaml:"default" validate:"omitempty,oneof=Bearer MAC"`
	Bearer  BearerConfig `yaml:"bearer"`
	MAC     MACConfig    `yaml:"mac"`
}

// ClientAssertionConfig holds the configuration of JWT client authentication.
type ClientAssertionConfig struct {
	Encryption EncryptionConfig `yaml:"encryption"`
}

// ClientRegistrationConfig holds the dynamic client registration configuration.
type ClientRegistrationConfig struct {
	HashSecrets    bool  `yaml:"hash_secrets"`
	SecretLifetime int64 `yaml:"secret_lifetime" validate:"gte=0"`
}

// TrustedIssuerConfig holds a third party issuer accepted for the JWT bearer grant.
type TrustedIssuerConfig struct {
	Issuer            string   `yaml:"issuer" validate:"required"`
	JWKS              string   `yaml:"jwks"`
	JWKSURI           string   `yaml:"jwks_uri" validate:"omitempty,url"`
	AllowedAlgorithms []string `yaml:"allowed_algorithms"`
}

// ScopeConfig holds a scope supported by the server.
type ScopeConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// UserConfig holds a statically provisioned user account.
type UserConfig struct {
	ID     string                 `yaml:"id" validate:"required"`
	Claims map[string]interface{} `yaml:"claims"`
}

// ClientConfig holds a statically provisioned client.
type ClientConfig struct {
	ClientID   string                 `yaml:"client_id" validate:"required"`
	OwnerID    string                 `yaml:"owner_id"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// SigningKeyConfig holds the server signing key configuration.
type SigningKeyConfig struct {
	KeyFile   string `yaml:"key_file"`
	KeyID     string `yaml:"key_id"`
	Algorithm string `yaml:"algorithm" validate:"omitempty,oneof=RS256 RS384 RS512 ES256 ES384 ES512"`
}

// OAuthConfig holds the OAuth configuration details.
type OAuthConfig struct {
	Issuer             string                   `yaml:"issuer" validate:"required,url"`
	AuthorizationCode  TokenLifetimeConfig      `yaml:"authorization_code"`
	AccessToken        TokenLifetimeConfig      `yaml:"access_token"`
	RefreshToken       RefreshTokenConfig       `yaml:"refresh_token"`
	IDToken            IDTokenConfig            `yaml:"id_token"`
	PKCE               PKCEConfig               `yaml:"pkce"`
	Authorization      AuthorizationConfig      `yaml:"authorization"`
	TokenType          TokenTypeConfig          `yaml:"token_type"`
	ClientAssertion    ClientAssertionConfig    `yaml:"client_assertion"`
	ClientRegistration ClientRegistrationConfig `yaml:"client_registration"`
	TrustedIssuers     []TrustedIssuerConfig    `yaml:"trusted_issuers" validate:"dive"`
	Scopes             []ScopeConfig            `yaml:"scopes" validate:"dive"`
	Users              []UserConfig             `yaml:"users" validate:"dive"`
	Clients            []ClientConfig           `yaml:"clients" validate:"dive"`
	SigningKey         SigningKeyConfig         `yaml:"signing_key"`
}

// HTTPClientConfig holds the outbound HTTP client configuration.
type HTTPClientConfig struct {
	Timeout int64 `yaml:"timeout" validate:"gte=0"`
}

// RateLimitConfig holds the token endpoint rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// KafkaConfig holds the Kafka audit sink configuration.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic" validate:"required_if=Enabled true"`
}

// AuditConfig holds the audit event configuration.
type AuditConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// InstrumentationConfig holds the OpenTelemetry configuration.
type InstrumentationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// CORSConfig holds the origins allowed to call the endpoints from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config holds the complete configuration details of the server.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Security        SecurityConfig        `yaml:"security"`
	Database        DatabaseConfig        `yaml:"database"`
	Redis           RedisConfig           `yaml:"redis"`
	Storage         StorageConfig         `yaml:"storage"`
	OAuth           OAuthConfig           `yaml:"oauth"`
	HTTPClient      HTTPClientConfig      `yaml:"http_client"`
	RateLimit       RateLimitConfig       `yaml:"rate_limit"`
	Audit           AuditConfig           `yaml:"audit"`
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`
	CORS            CORSConfig            `yaml:"cors"`
}

// LoadConfig loads the configurations from the specified YAML file. Environment
// references of the form ${VAR} are expanded, after loading an optional .env file
// that sits next to the configuration file.
func LoadConfig(path string) (*Config, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ConfigLoader"))
	path = filepath.Clean(path)

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load environment file: %w", err)
		}
		logger.Debug("Loaded environment file", log.String("path", envFile))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(content)
}

// ParseConfig parses, defaults and validates the given YAML configuration.
func ParseConfig(content []byte) (*Config, error) {
	var cfg Config
	expanded := os.ExpandEnv(string(content))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills the values that were left empty in the configuration file.
func applyDefaults(cfg *Config) {
	if cfg.Server.Hostname == "" {
		cfg.Server.Hostname = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "oidc"
	}
	if cfg.OAuth.AuthorizationCode.ValidityPeriod == 0 {
		cfg.OAuth.AuthorizationCode.ValidityPeriod = 30
	}
	if cfg.OAuth.AccessToken.ValidityPeriod == 0 {
		cfg.OAuth.AccessToken.ValidityPeriod = 3600
	}
	if cfg.OAuth.RefreshToken.ValidityPeriod == 0 {
		cfg.OAuth.RefreshToken.ValidityPeriod = 86400
	}
	if cfg.OAuth.IDToken.ValidityPeriod == 0 {
		cfg.OAuth.IDToken.ValidityPeriod = 3600
	}
	if cfg.OAuth.TokenType.Default == "" {
		cfg.OAuth.TokenType.Default = "Bearer"
	}
	if len(cfg.OAuth.TokenType.Bearer.Precedence) == 0 {
		cfg.OAuth.TokenType.Bearer.Precedence = []string{"header", "body", "query"}
	}
	if cfg.OAuth.TokenType.MAC.Algorithm == "" {
		cfg.OAuth.TokenType.MAC.Algorithm = "hmac-sha-256"
	}
	if cfg.OAuth.TokenType.MAC.TimestampLifetime == 0 {
		cfg.OAuth.TokenType.MAC.TimestampLifetime = 10
	}
	if cfg.OAuth.SigningKey.Algorithm == "" {
		cfg.OAuth.SigningKey.Algorithm = "RS256"
	}
	if cfg.OAuth.Authorization.UserHeader == "" {
		cfg.OAuth.Authorization.UserHeader = "X-Authenticated-User"
	}
	if cfg.OAuth.Authorization.RequestObject.MaxRequestURILen == 0 {
		cfg.OAuth.Authorization.RequestObject.MaxRequestURILen = 512
	}
	if len(cfg.OAuth.Scopes) == 0 {
		cfg.OAuth.Scopes = []ScopeConfig{
			{Name: "openid"}, {Name: "profile"}, {Name: "email"}, {Name: "offline_access"},
		}
	}
	if cfg.HTTPClient.Timeout == 0 {
		cfg.HTTPClient.Timeout = 5
	}
	if cfg.Instrumentation.ServiceName == "" {
		cfg.Instrumentation.ServiceName = "oidcengine"
	}
}
