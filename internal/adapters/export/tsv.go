// Package export vuelca órdenes y trades a texto: TSV que se puede volver
// a leer campo a campo, y tablas markdown para mostrar.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/alejandrodnm/updown/internal/domain"
)

// ErrBadHeader se devuelve si la cabecera del TSV no coincide con los campos esperados.
var ErrBadHeader = errors.New("unexpected tsv header")

// WriteOrdersTSV escribe una cabecera y una fila por orden.
func WriteOrdersTSV(w io.Writer, orders []domain.SimOrder) error {
	return writeTSV(w, orderColumns, orders)
}

// ParseOrdersTSV lee lo escrito por WriteOrdersTSV.
func ParseOrdersTSV(r io.Reader) ([]domain.SimOrder, error) {
	return parseTSV(r, orderColumns)
}

// WriteTradesTSV escribe una cabecera y una fila por trade.
func WriteTradesTSV(w io.Writer, trades []domain.Trade) error {
	return writeTSV(w, tradeColumns, trades)
}

// ParseTradesTSV lee lo escrito por WriteTradesTSV.
func ParseTradesTSV(r io.Reader) ([]domain.Trade, error) {
	return parseTSV(r, tradeColumns)
}

func writeTSV[T any](w io.Writer, cols []column[T], rows []T) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	record := make([]string, len(cols))
	for i, c := range cols {
		record[i] = c.name
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("export.writeTSV: header: %w", err)
	}
	for n, row := range rows {
		for i, c := range cols {
			record[i] = c.get(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export.writeTSV: row %d: %w", n, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseTSV[T any](r io.Reader, cols []column[T]) ([]T, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(cols)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("export.parseTSV: header: %w", err)
	}
	for i, c := range cols {
		if header[i] != c.name {
			return nil, fmt.Errorf("export.parseTSV: column %d is %q, want %q: %w", i, header[i], c.name, ErrBadHeader)
		}
	}

	out := []T{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("export.parseTSV: line %d: %w", line, err)
		}
		var row T
		for i, c := range cols {
			if err := c.set(&row, record[i]); err != nil {
				return nil, fmt.Errorf("export.parseTSV: line %d %s: %w", line, c.name, err)
			}
		}
		out = append(out, row)
	}
}
