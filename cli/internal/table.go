package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	fmt.Fprintln(t.w, strings.Join(headers, "\t"))
	return t
}

func (t *table) row(cols ...any) {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) flush() error {
	return t.w.Flush()
}
