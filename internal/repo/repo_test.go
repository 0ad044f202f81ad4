package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/NikitaKurabtsev/taxi-reports/internal/db"
	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
	"github.com/NikitaKurabtsev/taxi-reports/internal/migrate"
	"github.com/NikitaKurabtsev/taxi-reports/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func insertRun(t *testing.T, r repo.Repo, run domain.Run, rows []domain.ReportRow) {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	if err := r.InsertRun(ctx, tx, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	for _, row := range rows {
		if err := r.InsertReportRow(ctx, tx, run.ID, row); err != nil {
			t.Fatalf("insert row: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func sampleRow(id, driverID string) domain.ReportRow {
	return domain.ReportRow{
		ID: id, Date: "2024-06-08", ParkID: "park-1", DriverID: driverID,
		DriverName: "Сидоров Антон", CarID: "car-9", Orders: 4, Hours: 6,
		Cash:           decimal.RequireFromString("120.5"),
		Cashless:       decimal.RequireFromString("80.25"),
		ParkCommission: decimal.RequireFromString("12.05"), PlatformCommission: decimal.RequireFromString("4.1"),
	}
}

func TestGetRunNotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetRun(context.Background(), "missing")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	run := domain.Run{
		ID: "run-1", Period: "week",
		DateFrom: "2024-06-01T00:00:00Z", DateTo: "2024-06-08T00:00:00Z",
		Processed: 3, Skipped: 1, Inactive: 2, RowsWritten: 3,
		CreatedAt: "2024-06-08T09:00:00Z",
	}
	insertRun(t, r, run, nil)

	got, err := r.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got != run {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, run)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	r := newTestRepo(t)
	insertRun(t, r, domain.Run{ID: "run-old", Period: "day", CreatedAt: "2024-06-07T09:00:00Z"}, nil)
	insertRun(t, r, domain.Run{ID: "run-new", Period: "day", CreatedAt: "2024-06-08T09:00:00Z"}, nil)

	runs, err := r.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" || runs[1].ID != "run-old" {
		t.Fatalf("unexpected order %+v", runs)
	}

	runs, err = r.ListRuns(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-new" {
		t.Fatalf("limit ignored: %+v", runs)
	}
}

func TestReportRowRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	row := sampleRow("row-1", "d1")
	insertRun(t, r, domain.Run{ID: "run-1", Period: "day", CreatedAt: "2024-06-08T09:00:00Z"}, []domain.ReportRow{row})

	rows, err := r.ListReportRows(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.ID != row.ID || got.DriverName != row.DriverName || got.CarID != row.CarID {
		t.Fatalf("unexpected row %+v", got)
	}
	if !got.Cash.Equal(row.Cash) || !got.Cashless.Equal(row.Cashless) ||
		!got.ParkCommission.Equal(row.ParkCommission) || !got.PlatformCommission.Equal(row.PlatformCommission) {
		t.Fatalf("amounts changed in archive: %+v", got)
	}
}

func TestEmptyCarIDStoredAsNull(t *testing.T) {
	r := newTestRepo(t)
	row := sampleRow("row-1", "d1")
	row.CarID = ""
	insertRun(t, r, domain.Run{ID: "run-1", Period: "day", CreatedAt: "2024-06-08T09:00:00Z"}, []domain.ReportRow{row})

	var carID sql.NullString
	err := r.DB.QueryRow(`SELECT car_id FROM report_rows WHERE id='row-1'`).Scan(&carID)
	if err != nil {
		t.Fatalf("query car_id: %v", err)
	}
	if carID.Valid {
		t.Fatalf("expected NULL car_id, got %q", carID.String)
	}
	rows, err := r.ListReportRows(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].CarID != "" {
		t.Fatalf("expected empty car id, got %q", rows[0].CarID)
	}
}

func TestListDriverRowsAcrossRuns(t *testing.T) {
	r := newTestRepo(t)
	insertRun(t, r, domain.Run{ID: "run-1", Period: "day", CreatedAt: "2024-06-07T09:00:00Z"},
		[]domain.ReportRow{sampleRow("row-1", "d1"), sampleRow("row-2", "d2")})
	insertRun(t, r, domain.Run{ID: "run-2", Period: "day", CreatedAt: "2024-06-08T09:00:00Z"},
		[]domain.ReportRow{sampleRow("row-3", "d1")})

	rows, err := r.ListDriverRows(context.Background(), "d1")
	if err != nil {
		t.Fatalf("list driver rows: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "row-1" || rows[1].ID != "row-3" {
		t.Fatalf("unexpected driver rows %+v", rows)
	}
}

func TestDeletingRunCascadesRows(t *testing.T) {
	r := newTestRepo(t)
	insertRun(t, r, domain.Run{ID: "run-1", Period: "day", CreatedAt: "2024-06-08T09:00:00Z"},
		[]domain.ReportRow{sampleRow("row-1", "d1")})

	if _, err := r.DB.Exec(`DELETE FROM runs WHERE id='run-1'`); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	rows, err := r.ListReportRows(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows survived run deletion: %+v", rows)
	}
}
