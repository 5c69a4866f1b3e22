package export

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/alejandrodnm/updown/internal/domain"
)

// WriteOrdersMarkdown escribe las órdenes como tabla markdown.
func WriteOrdersMarkdown(w io.Writer, orders []domain.SimOrder) error {
	return writeMarkdown(w, orderColumns, orders)
}

// WriteTradesMarkdown escribe los trades como tabla markdown.
func WriteTradesMarkdown(w io.Writer, trades []domain.Trade) error {
	return writeMarkdown(w, tradeColumns, trades)
}

func writeMarkdown[T any](w io.Writer, cols []column[T], rows []T) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	table.Header(header)

	for n, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = c.get(row)
		}
		if err := table.Append(cells); err != nil {
			return fmt.Errorf("export.writeMarkdown: row %d: %w", n, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("export.writeMarkdown: %w", err)
	}
	return nil
}
