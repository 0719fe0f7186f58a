package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (r *Root) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "dashboard [on|off]",
		Short:     "Show or set whether the UI opens on the dashboard",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			if len(args) == 0 {
				enabled, err := app.Tracker.DashboardEnabled(cmd.Context())
				if err != nil {
					return err
				}
				out.Info("Dashboard is %s", onOff(enabled))
				return nil
			}
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("dashboard takes on or off, got %q", args[0])
			}
			if err := app.Tracker.SetDashboardEnabled(cmd.Context(), enabled); err != nil {
				return err
			}
			out.Success("Dashboard %s", onOff(enabled))
			return nil
		},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
