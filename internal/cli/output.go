package cli

import (
	"io"

	"github.com/pterm/pterm"
)

type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer { return printer{w: w} }

func (p printer) Success(format string, a ...any) {
	pterm.Success.WithWriter(p.w).Printfln(format, a...)
}

func (p printer) Info(format string, a ...any) {
	pterm.Info.WithWriter(p.w).Printfln(format, a...)
}

func (p printer) Warning(format string, a ...any) {
	pterm.Warning.WithWriter(p.w).Printfln(format, a...)
}

// Table renders rows; the first row is the header.
func (p printer) Table(rows pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).WithWriter(p.w).Render()
}

// Properties renders a two-column Property/Value table.
func (p printer) Properties(pairs ...[2]string) error {
	rows := pterm.TableData{{"Property", "Value"}}
	for _, kv := range pairs {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	return p.Table(rows)
}
