package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig implements Config from environment variables. Expiry values are
// duration strings such as "15m" or "30d" and are parsed once at load time.
type EnvConfig struct {
	SigningKey            string   `env:"JWT_SECRET,required"`
	Issuer                string   `env:"JWT_ISSUER" envDefault:"go-anon-auth"`
	Audience              []string `env:"JWT_AUDIENCE" envSeparator:","`
	AccessTokenExpiresIn  string   `env:"ACCESS_TOKEN_EXPIRES_IN" envDefault:"15m"`
	RefreshTokenExpiresIn string   `env:"REFRESH_TOKEN_EXPIRES_IN" envDefault:"30d"`
	EmailTokenExpiresIn   string   `env:"EMAIL_TOKEN_EXPIRES_IN" envDefault:"5m"`
	AccessTokenName       string   `env:"ACCESS_TOKEN_NAME" envDefault:"access_token"`
	RefreshTokenName      string   `env:"REFRESH_TOKEN_NAME" envDefault:"refresh_token"`
	CookiePath            string   `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain          string   `env:"COOKIE_DOMAIN"`
	CookieSameSite        string   `env:"COOKIE_SAMESITE" envDefault:"Lax"`
	CookieSecure          bool     `env:"COOKIE_SECURE" envDefault:"true"`

	KakaoClientID    string `env:"KAKAO_CLIENT_ID"`
	KakaoCallbackURL string `env:"KAKAO_CALLBACK_URL"`

	accessTokenExpiration  time.Duration
	refreshTokenExpiration time.Duration
	emailTokenExpiration   time.Duration
}

// LoadConfig reads and validates configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment configuration")
	}

	if err := cfg.parseExpirations(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) parseExpirations() error {
	var err error
	if c.accessTokenExpiration, err = ParseExpiry(c.AccessTokenExpiresIn); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid ACCESS_TOKEN_EXPIRES_IN")
	}
	if c.refreshTokenExpiration, err = ParseExpiry(c.RefreshTokenExpiresIn); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid REFRESH_TOKEN_EXPIRES_IN")
	}
	if c.emailTokenExpiration, err = ParseExpiry(c.EmailTokenExpiresIn); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid EMAIL_TOKEN_EXPIRES_IN")
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }
func (c *EnvConfig) GetIssuer() string     { return c.Issuer }
func (c *EnvConfig) GetAudience() []string { return c.Audience }

func (c *EnvConfig) GetAccessTokenExpiration() time.Duration {
	if c.accessTokenExpiration == 0 {
		_ = c.parseExpirations()
	}
	return c.accessTokenExpiration
}

func (c *EnvConfig) GetRefreshTokenExpiration() time.Duration {
	if c.refreshTokenExpiration == 0 {
		_ = c.parseExpirations()
	}
	return c.refreshTokenExpiration
}

func (c *EnvConfig) GetEmailTokenExpiration() time.Duration {
	if c.emailTokenExpiration == 0 {
		_ = c.parseExpirations()
	}
	return c.emailTokenExpiration
}

func (c *EnvConfig) GetAccessTokenName() string  { return c.AccessTokenName }
func (c *EnvConfig) GetRefreshTokenName() string { return c.RefreshTokenName }
func (c *EnvConfig) GetCookiePath() string       { return c.CookiePath }
func (c *EnvConfig) GetCookieDomain() string     { return c.CookieDomain }
func (c *EnvConfig) GetCookieSameSite() string   { return c.CookieSameSite }
func (c *EnvConfig) GetCookieSecure() bool       { return c.CookieSecure }

var _ Config = (*EnvConfig)(nil)
