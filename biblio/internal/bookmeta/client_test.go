package bookmeta_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Astemirdum/biblio-service/biblio/internal/bookmeta"
	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Lookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		want    model.BookMetadata
		wantErr error
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"totalItems":1,"items":[{"volumeInfo":{"title":"Le città invisibili","authors":["Italo Calvino","Esther Calvino"]}}]}`,
			want:   model.BookMetadata{ISBN: "9788804668237", Title: "Le città invisibili", Authors: "Italo Calvino, Esther Calvino"},
		},
		{
			name:    "no items",
			status:  http.StatusOK,
			body:    `{"totalItems":0}`,
			wantErr: errs.ErrNotFound,
		},
		{
			name:    "upstream down",
			status:  http.StatusBadGateway,
			body:    `{}`,
			wantErr: bookmeta.ErrUnavailable,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/volumes", r.URL.Path)
				require.Equal(t, "isbn:9788804668237", r.URL.Query().Get("q"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := bookmeta.NewClient(srv.URL, zap.NewNop())
			got, err := c.Lookup(context.Background(), "9788804668237")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClient_OpensAfterFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := bookmeta.NewClient(srv.URL, zap.NewNop())
	for i := 0; i < 15; i++ {
		_, err := c.Lookup(context.Background(), "1")
		require.ErrorIs(t, err, bookmeta.ErrUnavailable)
	}
	// the breaker opens once half of the window has failed
	require.EqualValues(t, 10, calls.Load())
}
