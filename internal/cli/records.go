package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/records"
	"github.com/sandeepkv93/rightontime/internal/views"
	"github.com/spf13/cobra"
)

func (r *Root) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Track a new document",
		Long:  "Track a new expiring document and schedule its reminders.",
		Example: "  rightontime add --type h1b --person self --expiry 2026-10-01\n" +
			"  rightontime add --type passport --person child --name Mira --expiry 2027-01-15 --remind 90,30",
		Args: cobra.NoArgs,
		RunE: r.runAdd,
	}
	addRecordFlags(cmd)
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("expiry")
	return cmd
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "document type (h1b, f1, opt, stemopt, visa, i94, passport, ead, dl, i140, i485, other)")
	cmd.Flags().String("person", "", "person category (self, spouse, child, parent)")
	cmd.Flags().String("name", "", "person's name, shown instead of the category")
	cmd.Flags().String("expiry", "", "expiry date, YYYY-MM-DD")
	cmd.Flags().String("notes", "", "free-form notes (markdown)")
	cmd.Flags().String("remind", "", "days before expiry to remind, e.g. 90,30 (default from config)")
}

func (r *Root) runAdd(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	typ, _ := cmd.Flags().GetString("type")
	person, _ := cmd.Flags().GetString("person")
	name, _ := cmd.Flags().GetString("name")
	expiry, _ := cmd.Flags().GetString("expiry")
	notes, _ := cmd.Flags().GetString("notes")

	offsets := app.Config.DefaultOffsets()
	if cmd.Flags().Changed("remind") {
		raw, _ := cmd.Flags().GetString("remind")
		if offsets, err = model.ParseOffsets(raw); err != nil {
			return err
		}
	}

	rec, err := app.Tracker.Add(cmd.Context(), records.Draft{
		DocumentType:    model.DocumentType(typ),
		PersonCategory:  model.PersonCategory(person),
		PersonName:      name,
		ExpiryDate:      expiry,
		Notes:           notes,
		ReminderOffsets: offsets,
	})
	return r.reportRecord(cmd, app, rec, "Added", err)
}

func (r *Root) newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a tracked document",
		Long:  "Change any field of a tracked document. Only the flags given are applied; reminders are rebuilt.",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runEdit,
	}
	addRecordFlags(cmd)
	return cmd
}

func (r *Root) runEdit(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	var p records.Patch
	flags := cmd.Flags()
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		t := model.DocumentType(v)
		p.DocumentType = &t
	}
	if flags.Changed("person") {
		v, _ := flags.GetString("person")
		c := model.PersonCategory(v)
		p.PersonCategory = &c
	}
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		p.PersonName = &v
	}
	if flags.Changed("expiry") {
		v, _ := flags.GetString("expiry")
		p.ExpiryDate = &v
	}
	if flags.Changed("notes") {
		v, _ := flags.GetString("notes")
		p.Notes = &v
	}
	if flags.Changed("remind") {
		v, _ := flags.GetString("remind")
		offsets, err := model.ParseOffsets(v)
		if err != nil {
			return err
		}
		p.ReminderOffsets = &offsets
	}

	rec, err := app.Tracker.Update(cmd.Context(), args[0], p)
	return r.reportRecord(cmd, app, rec, "Updated", err)
}

// reportRecord prints rec after a successful save. A scheduling failure still
// prints the saved record, then returns the error.
func (r *Root) reportRecord(cmd *cobra.Command, app *App, rec model.TrackedRecord, verb string, err error) error {
	if err != nil && !errors.Is(err, model.ErrScheduling) {
		return err
	}
	out := newPrinter(cmd.OutOrStdout())
	row := views.RowOf(rec, app.Now())
	if perr := out.Properties(
		[2]string{"ID", rec.ID},
		[2]string{"Document", row.Type},
		[2]string{"Person", row.Person},
		[2]string{"Expires", row.Expiry},
		[2]string{"Status", row.DaysText},
		[2]string{"Reminders", row.Offsets},
	); perr != nil {
		return perr
	}
	out.Success("%s %s", verb, views.Title(rec))
	if err != nil {
		out.Warning("Saved, but reminders could not be scheduled")
	}
	return err
}

func (r *Root) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked documents, soonest expiry first",
		Args:    cobra.NoArgs,
		RunE:    r.runList,
	}
	cmd.Flags().String("filter", string(views.FilterAll), "all, personal, family or urgent")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}

func (r *Root) runList(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	rawFilter, _ := cmd.Flags().GetString("filter")
	filter, err := views.ParseFilter(rawFilter)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")

	now := app.Now()
	list := views.Apply(views.SortByExpiry(app.Tracker.List()), filter, now)

	switch format {
	case "json":
		payload, err := records.Encode(list)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}

	out := newPrinter(cmd.OutOrStdout())
	if len(list) == 0 {
		out.Info("No documents tracked")
		return nil
	}
	rows := pterm.TableData{{"ID", "Document", "Person", "Expires", "Status", "Reminders"}}
	for _, row := range views.Rows(list, now) {
		rows = append(rows, []string{row.ID, row.Type, row.Person, row.Expiry, row.DaysText, row.Offsets})
	}
	return out.Table(rows)
}

func (r *Root) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Stop tracking a document and cancel its reminders",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			err = app.Tracker.Remove(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, model.ErrScheduling) {
				return err
			}
			newPrinter(cmd.OutOrStdout()).Success("Removed %s", args[0])
			return err
		},
	}
}
