// Package cli is the rightontime command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sandeepkv93/rightontime/internal/config"
	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type appContextKey struct{}

type RootOptions struct {
	ConfigPath string
}

type Option func(*Root)

// WithKV bypasses storage.driver and uses kv as-is. The caller closes it.
func WithKV(kv storage.KV) Option {
	return func(r *Root) { r.kv = kv }
}

func WithClock(now func() time.Time) Option {
	return func(r *Root) { r.now = now }
}

func WithOutput(w io.Writer) Option {
	return func(r *Root) { r.out = w }
}

type Root struct {
	cmd  *cobra.Command
	opts RootOptions
	app  *App
	kv   storage.KV
	now  func() time.Time
	out  io.Writer
}

func NewRoot(opts ...Option) *Root {
	r := &Root{out: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}

	cmd := &cobra.Command{
		Use:   "rightontime",
		Short: "Track document expiry dates and get reminded before they lapse",
		Long: "rightontime keeps a list of expiring documents (visas, passports, work permits)\n" +
			"and schedules reminders a configurable number of days before each expiry.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.setup(cmd)
		},
		RunE:          r.runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(r.out)
	cmd.PersistentFlags().StringVarP(&r.opts.ConfigPath, "config", "c", "", "config file path (YAML)")

	cmd.AddCommand(
		r.newAddCmd(),
		r.newListCmd(),
		r.newEditCmd(),
		r.newRemoveCmd(),
		r.newDashboardCmd(),
		r.newResyncCmd(),
		r.newWatchCmd(),
		r.newTUICmd(),
	)
	r.cmd = cmd
	return r
}

func (r *Root) Command() *cobra.Command { return r.cmd }

// Execute runs args and releases the storage afterwards, whether or not the
// command failed.
func (r *Root) Execute(ctx context.Context, args []string) error {
	r.cmd.SetArgs(args)
	err := r.cmd.ExecuteContext(ctx)
	if r.app != nil {
		err = multierr.Append(err, r.app.Close())
		r.app = nil
	}
	return err
}

// Execute is the process entry point.
func Execute(ctx context.Context) error {
	return NewRoot().Execute(ctx, os.Args[1:])
}

func (r *Root) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(r.opts.ConfigPath)
	if err != nil {
		return err
	}

	log := logging.NewNopLogger()
	if !interactive(cmd) || !writesToTerminal(cfg.Log) {
		log, err = logging.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	ctx := cmd.Context()
	kv := r.kv
	closeKV := func() error { return nil }
	if kv == nil {
		kv, closeKV, err = OpenStorage(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
		}
	}

	app, err := NewApp(ctx, cfg, log, kv, r.now)
	if err != nil {
		_ = closeKV()
		return err
	}
	app.closeKV = closeKV
	r.app = app
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, app))
	return nil
}

func appFrom(cmd *cobra.Command) (*App, error) {
	app, ok := cmd.Context().Value(appContextKey{}).(*App)
	if !ok || app == nil {
		return nil, errors.New("cli: app not initialised")
	}
	return app, nil
}

// interactive reports whether cmd draws the full-screen UI.
func interactive(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// writesToTerminal reports whether every log sink is a standard stream. The
// full-screen UI keeps quiet in that case.
func writesToTerminal(cfg logging.LogConfig) bool {
	if len(cfg.OutputPaths) == 0 {
		return true
	}
	for _, p := range cfg.OutputPaths {
		if p != "stderr" && p != "stdout" {
			return false
		}
	}
	return true
}
