package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Astemirdum/biblio-service/biblioctl/config"
	"github.com/Astemirdum/biblio-service/biblioctl/internal/client"
	"github.com/Astemirdum/biblio-service/biblioctl/internal/localstate"
	"github.com/Astemirdum/biblio-service/biblioctl/internal/store"
	"github.com/Astemirdum/biblio-service/pkg/logger"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// App holds the stores shared by all commands of one run.
type App struct {
	cfg *config.Config
	log *zap.Logger
	in  *os.File
	out io.Writer
	yes bool

	state   *localstate.State
	api     *client.Client
	session *store.Session
	cart    *store.Cart
	catalog *store.Catalog
	board   *store.Board
	users   *store.Directory
}

func Run(ctx context.Context, cfg *config.Config) error {
	a := &App{
		cfg: cfg,
		log: logger.NewLogger(cfg.Log, "biblioctl"),
		in:  os.Stdin,
		out: os.Stdout,
	}
	defer a.log.Sync() //nolint:errcheck
	defer a.close()
	return a.rootCmd().ExecuteContext(ctx)
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "biblioctl",
		Short:        "School library client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "answer yes to confirmations")
	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.booksCmd(),
		a.isbnCmd(),
		a.cartCmd(),
		a.requestsCmd(),
		a.loansCmd(),
		a.boardCmd(),
		a.watchCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *App) open(ctx context.Context) error {
	state, err := localstate.Open(a.cfg.StatePath)
	if err != nil {
		return err
	}
	a.state = state
	a.api = client.New(a.cfg.ServerURL, a.log)
	a.api.SetToken(a.cfg.Token)
	a.session = store.NewSession(a.api, state, a.log)
	if _, err := a.session.Restore(ctx); err != nil {
		return errors.Wrap(err, "restore session")
	}

	// staff have no cart
	var cart *store.Cart
	if m, err := a.session.Membership(); err != nil || m.Role == model.RoleUser {
		if cart, err = store.NewCart(ctx, state, a.log); err != nil {
			return errors.Wrap(err, "load cart")
		}
	}
	a.cart = cart
	if a.catalog, err = store.NewCatalog(ctx, a.api, cart, state, a.log); err != nil {
		return errors.Wrap(err, "load catalog")
	}
	a.board = store.NewBoard(a.api, cart, a.log)
	a.users = store.NewDirectory(a.api, a.log)
	a.log.Debug("state opened", zap.String("path", state.Path()))
	return nil
}

func (a *App) close() {
	if a.state == nil {
		return
	}
	if err := a.state.Close(); err != nil {
		a.log.Warn("close state", zap.Error(err))
	}
	a.state = nil
}

// member fails unless someone is logged in.
func (a *App) member() (model.Membership, error) {
	m, err := a.session.Membership()
	if err != nil {
		return model.Membership{}, errors.Wrap(err, "run biblioctl login first")
	}
	return m, nil
}

func (a *App) staff() error {
	m, err := a.member()
	if err != nil {
		return err
	}
	if m.Role != model.RoleStaff {
		return errors.New("only staff can do that")
	}
	return nil
}

// confirm asks on the terminal. Without a terminal the answer is no unless
// --yes was given.
func (a *App) confirm(prompt string) bool {
	if a.yes {
		return true
	}
	if !term.IsTerminal(int(a.in.Fd())) {
		fmt.Fprintf(a.out, "%s (pass --yes to confirm)\n", prompt)
		return false
	}
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
