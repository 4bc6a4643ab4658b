package auth0

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/auth"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	jwt "github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.test/"
	testAudience = "biblio"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return token
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	v, err := validator.New(
		func(context.Context) (interface{}, error) { return testKey, nil },
		validator.HS256,
		testIssuer,
		[]string{testAudience},
	)
	require.NoError(t, err)

	now := time.Now()
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "no header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signed(t, jwt.MapClaims{
				"iss": testIssuer, "aud": testAudience, "sub": "u1",
				"exp": now.Add(-time.Hour).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong audience",
			header: "Bearer " + signed(t, jwt.MapClaims{
				"iss": testIssuer, "aud": "other", "sub": "u1",
				"exp": now.Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "subject becomes user id",
			header: "Bearer " + signed(t, jwt.MapClaims{
				"iss": testIssuer, "aud": testAudience, "sub": "u1",
				"exp": now.Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusOK,
			wantUser:   "u1",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			e.Use(Middleware(v))
			e.GET("/me", func(c echo.Context) error {
				return c.String(http.StatusOK, c.Request().Header.Get(auth.XUserIDHeader))
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set(auth.XUserIDHeader, "somebody-else")
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantUser != "" {
				require.Equal(t, tt.wantUser, rec.Body.String())
			}
		})
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Issuer: "tenant.eu.auth0.com", Audience: testAudience}.Enabled())
}
