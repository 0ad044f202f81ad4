// Package repo is the raw-SQL data access layer over the run archive.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repo struct {
	DB *sql.DB
}

// InsertRun records a completed run.
func (r Repo) InsertRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id,period,date_from,date_to,processed,skipped,inactive,rows_written,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Period, run.DateFrom, run.DateTo, run.Processed, run.Skipped, run.Inactive, run.RowsWritten, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertReportRow archives one report row under its run.
func (r Repo) InsertReportRow(ctx context.Context, tx *sql.Tx, runID string, row domain.ReportRow) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO report_rows(id,run_id,report_date,park_id,driver_id,driver_name,car_id,orders,hours,cash,cashless,park_commission,platform_commission)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID, runID, row.Date, row.ParkID, row.DriverID, row.DriverName, nullable(row.CarID),
		row.Orders, row.Hours, row.Cash.String(), row.Cashless.String(),
		row.ParkCommission.String(), row.PlatformCommission.String())
	if err != nil {
		return fmt.Errorf("insert report row: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id,period,date_from,date_to,processed,skipped,inactive,rows_written,created_at FROM runs WHERE id=?`, id)
	var run domain.Run
	err := row.Scan(&run.ID, &run.Period, &run.DateFrom, &run.DateTo, &run.Processed, &run.Skipped, &run.Inactive, &run.RowsWritten, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Run{}, ErrNotFound
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r Repo) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,period,date_from,date_to,processed,skipped,inactive,rows_written,created_at FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.Period, &run.DateFrom, &run.DateTo, &run.Processed, &run.Skipped, &run.Inactive, &run.RowsWritten, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListReportRows returns the archived rows of one run in insertion order.
func (r Repo) ListReportRows(ctx context.Context, runID string) ([]domain.ReportRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,report_date,park_id,driver_id,driver_name,car_id,orders,hours,cash,cashless,park_commission,platform_commission
		 FROM report_rows WHERE run_id=? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list report rows: %w", err)
	}
	defer rows.Close()
	return scanReportRows(rows)
}

// ListDriverRows returns all archived rows for one driver across runs.
func (r Repo) ListDriverRows(ctx context.Context, driverID string) ([]domain.ReportRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,report_date,park_id,driver_id,driver_name,car_id,orders,hours,cash,cashless,park_commission,platform_commission
		 FROM report_rows WHERE driver_id=? ORDER BY rowid`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list driver rows: %w", err)
	}
	defer rows.Close()
	return scanReportRows(rows)
}

func scanReportRows(rows *sql.Rows) ([]domain.ReportRow, error) {
	var out []domain.ReportRow
	for rows.Next() {
		var row domain.ReportRow
		var carID sql.NullString
		var cash, cashless, parkFee, platformFee string
		if err := rows.Scan(&row.ID, &row.Date, &row.ParkID, &row.DriverID, &row.DriverName, &carID,
			&row.Orders, &row.Hours, &cash, &cashless, &parkFee, &platformFee); err != nil {
			return nil, err
		}
		row.CarID = carID.String
		for i, src := range []string{cash, cashless, parkFee, platformFee} {
			d, err := decimal.NewFromString(src)
			if err != nil {
				return nil, fmt.Errorf("decode archived amount %q: %w", src, err)
			}
			switch i {
			case 0:
				row.Cash = d
			case 1:
				row.Cashless = d
			case 2:
				row.ParkCommission = d
			case 3:
				row.PlatformCommission = d
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LatestEvents returns the newest events, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, n int, runID, evtType string) ([]domain.Event, error) {
	if n <= 0 {
		n = 20
	}
	q := `SELECT id,ts,type,run_id,entity_kind,entity_id,payload_json FROM events`
	var conds []string
	var args []any
	if runID != "" {
		conds = append(conds, "run_id=?")
		args = append(args, runID)
	}
	if evtType != "" {
		conds = append(conds, "type=?")
		args = append(args, evtType)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, n)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("latest events: %w", err)
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var rid, eid sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &rid, &e.EntityKind, &eid, &e.Payload); err != nil {
			return nil, err
		}
		e.RunID = rid.String
		e.EntityID = eid.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
