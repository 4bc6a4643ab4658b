package middleware

import (
	"context"
	"net/http"

	"github.com/Astemirdum/biblio-service/pkg/auth"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// IdentityResolver turns the identity headers set by the auth gateway into a
// caller identity, typically by loading the stored membership.
type IdentityResolver func(ctx context.Context, userID, schoolID string) (model.Identity, error)

// AuthContext requires the identity headers and stores the resolved identity
// in the request context.
func AuthContext(resolve IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			userID := req.Header.Get(auth.XUserIDHeader)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "user-id is empty")
			}
			schoolID := req.Header.Get(auth.XSchoolIDHeader)
			if schoolID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "school-id is empty")
			}
			ident, err := resolve(req.Context(), userID, schoolID)
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(auth.SetIdentity(req.Context(), ident)))
			return next(c)
		}
	}
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
