// Package report owns the durable report file: read the prior state if one
// exists, merge freshly computed rows onto it, write the result back.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

var columns = []string{
	"date",
	"driver_name",
	"orders",
	"hours",
	"cash",
	"cashless",
	"park_commission",
	"platform_commission",
}

// Merge appends new rows onto the existing report. Existing rows are kept
// unmodified and in place; new rows follow in the order they were produced.
// No deduplication happens here: rerunning a period appends again.
func Merge(existing, fresh []domain.ReportRow) []domain.ReportRow {
	out := make([]domain.ReportRow, 0, len(existing)+len(fresh))
	out = append(out, existing...)
	out = append(out, fresh...)
	return out
}

// Read loads the report file. A missing file is not an error; the merge
// then degrades to new rows only.
func Read(path string) ([]domain.ReportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

// Write replaces the report file with the given rows.
func Write(path string, rows []domain.ReportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encode(w io.Writer, rows []domain.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date,
			r.DriverName,
			strconv.Itoa(r.Orders),
			strconv.Itoa(r.Hours),
			r.Cash.String(),
			r.Cashless.String(),
			r.ParkCommission.String(),
			r.PlatformCommission.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decode(r io.Reader) ([]domain.ReportRow, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	var rows []domain.ReportRow
	for i, rec := range records[1:] {
		row, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("report row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(rec []string) (domain.ReportRow, error) {
	if len(rec) != len(columns) {
		return domain.ReportRow{}, fmt.Errorf("expected %d fields, got %d", len(columns), len(rec))
	}
	orders, err := strconv.Atoi(rec[2])
	if err != nil {
		return domain.ReportRow{}, fmt.Errorf("orders: %w", err)
	}
	hours, err := strconv.Atoi(rec[3])
	if err != nil {
		return domain.ReportRow{}, fmt.Errorf("hours: %w", err)
	}
	row := domain.ReportRow{Date: rec[0], DriverName: rec[1], Orders: orders, Hours: hours}
	for i, dst := range []*decimal.Decimal{&row.Cash, &row.Cashless, &row.ParkCommission, &row.PlatformCommission} {
		d, err := decimal.NewFromString(rec[4+i])
		if err != nil {
			return domain.ReportRow{}, fmt.Errorf("%s: %w", columns[4+i], err)
		}
		*dst = d
	}
	return row, nil
}

// Render prints the rows as a table.
func Render(w io.Writer, rows []domain.ReportRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Driver", "Orders", "Hours", "Cash", "Cashless", "Park fee", "Platform fee"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Date,
			r.DriverName,
			r.Orders,
			r.Hours,
			r.Cash.String(),
			r.Cashless.String(),
			r.ParkCommission.String(),
			r.PlatformCommission.String(),
		})
	}
	t.Render()
}
