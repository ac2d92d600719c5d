package orders

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is an environment backed Config implementation. Field defaults
// cover local development; production deployments must at least set
// ORDERS_SIGNING_KEY.
type EnvConfig struct {
	SigningKey       string        `env:"ORDERS_SIGNING_KEY"`
	SigningMethod    string        `env:"ORDERS_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey       string        `env:"ORDERS_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration  int           `env:"ORDERS_TOKEN_EXPIRATION" envDefault:"168"`
	CheckoutTokenTTL time.Duration `env:"ORDERS_CHECKOUT_TOKEN_TTL" envDefault:"10m"`
	TokenLookup      string        `env:"ORDERS_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme       string        `env:"ORDERS_AUTH_SCHEME" envDefault:"Bearer"`
	Issuer           string        `env:"ORDERS_ISSUER" envDefault:"orders"`
	Audience         []string      `env:"ORDERS_AUDIENCE" envDefault:"orders"`
}

// NewConfigFromEnv parses configuration from process environment variables.
func NewConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment config")
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("ORDERS_SIGNING_KEY is required", errors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string              { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string           { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string              { return c.ContextKey }
func (c *EnvConfig) GetTokenExpiration() int            { return c.TokenExpiration }
func (c *EnvConfig) GetCheckoutTokenTTL() time.Duration { return c.CheckoutTokenTTL }
func (c *EnvConfig) GetTokenLookup() string             { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string              { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string                  { return c.Issuer }
func (c *EnvConfig) GetAudience() []string              { return c.Audience }

var _ Config = (*EnvConfig)(nil)
