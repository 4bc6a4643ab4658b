// Package auth0 verifies identity provider tokens and exposes the subject as
// the caller's user id.
package auth0

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/auth"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

type Config struct {
	Issuer   string `yaml:"issuer" envconfig:"AUTH0_DOMAIN"`
	Audience string `yaml:"audience" envconfig:"AUTH0_AUDIENCE"`
}

func (c Config) Enabled() bool {
	return c.Issuer != ""
}

// TokenValidator is satisfied by *validator.Validator.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// NewValidator checks RS256 tokens against the issuer's JWKS.
func NewValidator(cfg Config) (*validator.Validator, error) {
	issuerURL, err := url.Parse("https://" + cfg.Issuer + "/")
	if err != nil {
		return nil, errors.Wrap(err, "parse issuer url")
	}
	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	v, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, errors.Wrap(err, "set up the jwt validator")
	}
	return v, nil
}

// Middleware requires a valid bearer token and replaces the user id header
// with the token subject, so a client cannot act as somebody else.
func Middleware(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			authorization := req.Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}

			claims, err := v.ValidateToken(req.Context(), strings.TrimPrefix(authorization, bearer))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
			}
			validated, ok := claims.(*validator.ValidatedClaims)
			if !ok || validated.RegisteredClaims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has no subject")
			}

			req.Header.Set(auth.XUserIDHeader, validated.RegisteredClaims.Subject)
			return next(c)
		}
	}
}
