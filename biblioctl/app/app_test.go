package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Astemirdum/biblio-service/biblioctl/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, serverURL string) (*App, *bytes.Buffer) {
	t.Helper()
	stdin, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	t.Cleanup(func() { _ = stdin.Close() })

	out := &bytes.Buffer{}
	return &App{
		cfg: &config.Config{
			ServerURL: serverURL,
			StatePath: filepath.Join(t.TempDir(), "state.db"),
		},
		log: zap.NewNop(),
		in:  stdin,
		out: out,
	}, out
}

func (a *App) execute(args ...string) error {
	defer a.close()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(context.Background())
}

func TestConfirm(t *testing.T) {
	t.Parallel()
	a, out := newTestApp(t, "")
	require.False(t, a.confirm("Remove all 2 books from the cart?"))
	require.Contains(t, out.String(), "--yes")

	a.yes = true
	require.True(t, a.confirm("Remove all 2 books from the cart?"))
}

func TestCommands_RequireLogin(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t, "http://localhost:1")
	err := a.execute("books")
	require.ErrorContains(t, err, "login")
}

func TestCommands_LoginAndWhoami(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/me", r.URL.Path)
		require.Equal(t, "staff1", r.Header.Get("X-User-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"staff1","schoolId":"s1","role":"staff"}`))
	}))
	defer srv.Close()

	a, out := newTestApp(t, srv.URL)
	require.NoError(t, a.execute("login", "--user", "staff1", "--school", "s1"))
	require.Contains(t, out.String(), "logged in to s1 as staff")

	// a second run picks the session up from the state file
	again, againOut := newTestApp(t, srv.URL)
	again.cfg.StatePath = a.cfg.StatePath
	require.NoError(t, again.execute("whoami"))
	require.Contains(t, againOut.String(), "staff1 at s1 (staff)")

	require.ErrorContains(t, again.execute("cart"), "staff have no cart")
}
