package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/circuit_breaker"
	"github.com/stretchr/testify/require"
)

var errService = errors.New("service error")

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()

	ok := func() error { return nil }
	fail := func() error { return errService }

	tests := []struct {
		name      string
		run       func(cb circuit_breaker.CircuitBreaker, clk *clock) error
		wantErr   error
		wantState circuit_breaker.Status
	}{
		{
			name: "stays closed on success",
			run: func(cb circuit_breaker.CircuitBreaker, _ *clock) error {
				var err error
				for i := 0; i < 20; i++ {
					err = cb.Call(ok)
				}
				return err
			},
			wantState: circuit_breaker.Closed,
		},
		{
			name: "opens after failure ratio",
			run: func(cb circuit_breaker.CircuitBreaker, _ *clock) error {
				for i := 0; i < 3; i++ {
					_ = cb.Call(fail)
				}
				return cb.Call(ok)
			},
			wantErr:   circuit_breaker.ErrOpenCB,
			wantState: circuit_breaker.Open,
		},
		{
			name: "half open recovers",
			run: func(cb circuit_breaker.CircuitBreaker, clk *clock) error {
				for i := 0; i < 3; i++ {
					_ = cb.Call(fail)
				}
				clk.t = clk.t.Add(2 * time.Second)
				var err error
				for i := 0; i < 2; i++ {
					err = cb.Call(ok)
				}
				return err
			},
			wantState: circuit_breaker.Closed,
		},
		{
			name: "half open failure reopens",
			run: func(cb circuit_breaker.CircuitBreaker, clk *clock) error {
				for i := 0; i < 3; i++ {
					_ = cb.Call(fail)
				}
				clk.t = clk.t.Add(2 * time.Second)
				return cb.Call(fail)
			},
			wantErr:   errService,
			wantState: circuit_breaker.Open,
		},
		{
			name: "ignored errors do not trip",
			run: func(cb circuit_breaker.CircuitBreaker, _ *clock) error {
				var err error
				for i := 0; i < 10; i++ {
					err = cb.Call(func() error { return errIgnored })
				}
				return err
			},
			wantErr:   errIgnored,
			wantState: circuit_breaker.Closed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			cb := circuit_breaker.New(10, time.Second, 0.3, 2,
				circuit_breaker.WithClock(clk.now),
				circuit_breaker.WithIgnored(func(err error) bool { return errors.Is(err, errIgnored) }),
			)
			err := tt.run(cb, clk)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.Equal(t, tt.wantState, cb.State())
		})
	}
}

var errIgnored = errors.New("not found")
