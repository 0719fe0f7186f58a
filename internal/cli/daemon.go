package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	dto "github.com/prometheus/client_model/go"
	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/notify"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
	"github.com/sandeepkv93/rightontime/internal/update"
	"github.com/spf13/cobra"
)

func (r *Root) newResyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild every reminder from the stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			res, err := app.Tracker.Resync(cmd.Context())
			newPrinter(cmd.OutOrStdout()).Success("Reminders resynced: %d scheduled, %d cancelled", res.Created, res.Cancelled)
			return err
		},
	}
}

func (r *Root) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run in the foreground and deliver reminders as they come due",
		Args:  cobra.NoArgs,
		RunE:  r.runWatch,
	}
}

func (r *Root) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE:  r.runTUI,
	}
}

// reminderLoop owns the engine and dispatcher for one process.
type reminderLoop struct {
	engine     *scheduler.Engine
	dispatcher *notify.Dispatcher
}

// startReminders attaches a fresh engine to the alarm book and brings every
// record's alarms up to date. Alarms missed while nothing ran stay in the
// book; the dispatcher's first sync loads them and they fire straight away.
func startReminders(ctx context.Context, app *App, observe func(notify.Notification)) *reminderLoop {
	engine := scheduler.NewEngine(app.Config.Scheduler.Buffer)
	app.Book.Attach(engine)
	engine.Start()

	if _, err := app.Tracker.Resync(ctx); err != nil {
		app.Log.Warn("initial resync incomplete", logging.Err(err))
	}

	var notifier notify.DesktopNotifier = notify.NoopNotifier{}
	if app.Config.Notifications.Desktop {
		notifier = notify.ExecDesktopNotifier{}
	}
	d := notify.NewDispatcher(engine.C(), app.Book, app.Tracker, notifier,
		notify.WithLogger(app.Log.Named("dispatcher")),
		notify.WithSyncInterval(app.Config.Scheduler.SyncInterval),
		notify.WithObserver(observe),
	)
	return &reminderLoop{engine: engine, dispatcher: d}
}

func (l *reminderLoop) stop() {
	l.engine.Stop()
}

func (r *Root) runWatch(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newPrinter(cmd.OutOrStdout())
	loop := startReminders(ctx, app, func(n notify.Notification) {
		out.Info("%s: %s", n.Title, n.Body)
	})
	defer loop.stop()

	pending, _ := app.Book.ListScheduled(ctx)
	out.Info("Watching %d documents, %d reminders pending (Ctrl+C to stop)", len(app.Tracker.List()), len(pending))
	err = loop.dispatcher.Run(ctx)
	logCounters(app)
	return err
}

func (r *Root) runTUI(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reminders := make(chan notify.Notification, 16)
	loop := startReminders(ctx, app, func(n notify.Notification) {
		select {
		case reminders <- n:
		default:
			app.Log.Warn("ui reminder queue full", logging.String("key", n.Key))
		}
	})
	defer loop.stop()
	go func() { _ = loop.dispatcher.Run(ctx) }()

	cfg := update.RuntimeConfigFrom(app.Config)
	cfg.Now = app.Now
	model := update.NewModel(ctx, app.Tracker, reminders, cfg)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// logCounters writes the final counter values, there being no metrics
// endpoint to scrape.
func logCounters(app *App) {
	families, err := app.Registry.Gather()
	if err != nil {
		app.Log.Warn("gather metrics failed", logging.Err(err))
		return
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		app.Log.Info("counter", logging.String("name", mf.GetName()), logging.Any("value", total))
	}
}
