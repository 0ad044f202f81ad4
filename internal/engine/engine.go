// Package engine orchestrates a reporting run: roster fetch, per-driver
// aggregation across parks, report merge, and archive bookkeeping.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NikitaKurabtsev/taxi-reports/internal/aggregate"
	"github.com/NikitaKurabtsev/taxi-reports/internal/classify"
	"github.com/NikitaKurabtsev/taxi-reports/internal/config"
	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
	"github.com/NikitaKurabtsev/taxi-reports/internal/events"
	"github.com/NikitaKurabtsev/taxi-reports/internal/fleet"
	"github.com/NikitaKurabtsev/taxi-reports/internal/ledger"
	"github.com/NikitaKurabtsev/taxi-reports/internal/report"
	"github.com/NikitaKurabtsev/taxi-reports/internal/repo"
	"github.com/NikitaKurabtsev/taxi-reports/internal/roster"
)

// LedgerClient provides the roster dataset.
type LedgerClient interface {
	FetchDrivers(ctx context.Context) ([]domain.DriverRecord, error)
}

// PlatformClient provides per-park platform endpoints.
type PlatformClient interface {
	DriverProfile(ctx context.Context, driverID string) (domain.DriverProfile, error)
	SupplyHours(ctx context.Context, driverID string, from, to time.Time) (int64, error)
	Orders(ctx context.Context, driverID, carID string, period fleet.DateRange) ([]domain.Order, error)
	Transactions(ctx context.Context, driverID string, categories []string, period fleet.DateRange) ([]domain.Transaction, error)
}

// ProfileCache is an optional read-through cache for driver profiles.
// Cache failures degrade to a direct fetch.
type ProfileCache interface {
	Get(ctx context.Context, driverID string) (*domain.DriverProfile, error)
	Set(ctx context.Context, driverID string, profile domain.DriverProfile) error
}

// Park pairs a park id with its platform client.
type Park struct {
	ID     string
	Client PlatformClient
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Ledger LedgerClient
	Parks  []Park
	Cache  ProfileCache
	Config *config.Config
	Log    *slog.Logger
	Now    func() time.Time
}

// New wires an engine from config, building one platform client per park.
func New(conn *sql.DB, cfg *config.Config, log *slog.Logger) Engine {
	parks := make([]Park, 0, len(cfg.Parks))
	for _, p := range cfg.Parks {
		parks = append(parks, Park{ID: p.ParkID, Client: fleet.New(cfg.Platform.BaseURL, p)})
	}
	return Engine{
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Events: events.Writer{DB: conn},
		Ledger: ledger.New(cfg.Ledger.BaseURL, cfg.Ledger.Login, cfg.Ledger.Password),
		Parks:  parks,
		Config: cfg,
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Period is a named reporting window.
type Period struct {
	Name string
	Days int
}

// ParsePeriod maps the CLI argument onto a window. Anything but the three
// known names is a configuration error.
func ParsePeriod(arg string) (Period, error) {
	switch arg {
	case "day":
		return Period{Name: "day", Days: 1}, nil
	case "week":
		return Period{Name: "week", Days: 7}, nil
	case "month":
		return Period{Name: "month", Days: 31}, nil
	default:
		return Period{}, fmt.Errorf("invalid period %q: choose day, week or month", arg)
	}
}

// Window computes the date range for a period, anchored at local midnight.
func (e Engine) Window(p Period) fleet.DateRange {
	now := e.now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return fleet.DateRange{From: to.AddDate(0, 0, -p.Days), To: to}
}

// Outcome is the result of processing one driver in one park: a report row,
// an inactive marker, or a skip with its reason.
type Outcome struct {
	ParkID     string
	DriverID   string
	Row        *domain.ReportRow
	Inactive   bool
	SkipReason string
}

// Summary is what a run reports back to the operator.
type Summary struct {
	RunID       string
	Period      string
	Processed   int
	Skipped     int
	Inactive    int
	RowsWritten int
	ReportRows  int
}

// Run executes the full pipeline for the named period. The only fatal
// conditions are period parsing, roster fetch, report I/O, and archive
// writes; per-driver failures are folded into the summary.
func (e Engine) Run(ctx context.Context, periodName string) (Summary, error) {
	period, err := ParsePeriod(periodName)
	if err != nil {
		return Summary{}, err
	}
	window := e.Window(period)
	reportDate := window.To.Format("2006-01-02")

	records, err := e.Ledger.FetchDrivers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch roster: %w", err)
	}
	eligible := roster.Filter(records, window.From, e.Config.Roster.ExcludedDepartments)
	e.Log.Info("roster prepared", "total", len(records), "eligible", len(eligible), "period", period.Name)

	runID := uuid.New().String()
	summary := Summary{RunID: runID, Period: period.Name}
	var outcomes []Outcome
	var fresh []domain.ReportRow

	for _, park := range e.Parks {
		for _, rec := range eligible {
			outcome := e.processDriver(ctx, park, rec, window, reportDate)
			switch {
			case outcome.SkipReason != "":
				summary.Skipped++
				e.Log.Warn("driver skipped", "driver_id", outcome.DriverID, "park_id", park.ID, "reason", outcome.SkipReason)
			case outcome.Inactive:
				summary.Inactive++
			default:
				summary.Processed++
				outcome.Row.ID = rowID(runID, park.ID, rec.DriverID)
				fresh = append(fresh, *outcome.Row)
			}
			outcomes = append(outcomes, outcome)
		}
	}
	summary.RowsWritten = len(fresh)

	// The durable report is only touched after every driver is aggregated.
	prior, err := report.Read(e.Config.Report.Path)
	if err != nil {
		return summary, fmt.Errorf("read prior report: %w", err)
	}
	merged := report.Merge(prior, fresh)
	if err := report.Write(e.Config.Report.Path, merged); err != nil {
		return summary, fmt.Errorf("write report: %w", err)
	}
	summary.ReportRows = len(merged)

	if err := e.archive(ctx, runID, period, window, summary, outcomes, fresh); err != nil {
		return summary, fmt.Errorf("archive run: %w", err)
	}
	e.Log.Info("run completed",
		"run_id", runID,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"inactive", summary.Inactive,
		"rows_written", summary.RowsWritten)
	return summary, nil
}

// processDriver aggregates one driver in one park. It never returns an
// error: every failure becomes a skip outcome so the remaining drivers are
// unaffected.
func (e Engine) processDriver(ctx context.Context, park Park, rec domain.DriverRecord, window fleet.DateRange, reportDate string) Outcome {
	out := Outcome{ParkID: park.ID, DriverID: rec.DriverID}

	profile, err := e.fetchProfile(ctx, park, rec.DriverID)
	if err != nil {
		out.SkipReason = fmt.Sprintf("profile: %v", err)
		return out
	}

	supplySeconds, err := park.Client.SupplyHours(ctx, rec.DriverID, window.From, window.To)
	if err != nil {
		out.SkipReason = fmt.Sprintf("supply hours: %v", err)
		return out
	}
	if supplySeconds == 0 {
		out.Inactive = true
		return out
	}

	// Only a transport-level walk failure degrades to partial results:
	// the pages fetched before it are complete and trustworthy. A bad
	// status or a malformed payload means the platform data itself is
	// suspect, and an undercounted row must not reach the report.
	orders, err := park.Client.Orders(ctx, rec.DriverID, profile.CarID, window)
	if err != nil {
		if !transportFailure(err) {
			out.SkipReason = fmt.Sprintf("orders: %v", err)
			return out
		}
		e.Log.Warn("orders fetch incomplete", "driver_id", rec.DriverID, "park_id", park.ID, "orders", len(orders), "error", err)
	}
	transactions, err := park.Client.Transactions(ctx, rec.DriverID, classify.Categories(), window)
	if err != nil {
		if !transportFailure(err) {
			out.SkipReason = fmt.Sprintf("transactions: %v", err)
			return out
		}
		e.Log.Warn("transactions fetch incomplete", "driver_id", rec.DriverID, "park_id", park.ID, "transactions", len(transactions), "error", err)
	}

	agg, ok := aggregate.Build(rec, profile, orders, transactions, supplySeconds)
	if !ok {
		out.Inactive = true
		return out
	}
	out.Row = &domain.ReportRow{
		Date:               reportDate,
		ParkID:             park.ID,
		DriverID:           agg.DriverID,
		DriverName:         agg.DriverName,
		CarID:              agg.CarID,
		Orders:             agg.Orders,
		Hours:              agg.Hours,
		Cash:               agg.Cash,
		Cashless:           agg.Cashless,
		ParkCommission:     agg.ParkCommission,
		PlatformCommission: agg.PlatformCommission,
	}
	return out
}

func transportFailure(err error) bool {
	var te *fleet.TransportError
	return errors.As(err, &te)
}

// fetchProfile reads through the cache when one is configured.
func (e Engine) fetchProfile(ctx context.Context, park Park, driverID string) (domain.DriverProfile, error) {
	if e.Cache != nil {
		if cached, err := e.Cache.Get(ctx, driverID); err == nil && cached != nil {
			return *cached, nil
		}
	}
	profile, err := park.Client.DriverProfile(ctx, driverID)
	if err != nil {
		return domain.DriverProfile{}, err
	}
	if e.Cache != nil {
		if err := e.Cache.Set(ctx, driverID, profile); err != nil {
			e.Log.Warn("profile cache write failed", "driver_id", driverID, "error", err)
		}
	}
	return profile, nil
}

// archive stores the run, its rows, and its events in one transaction.
func (e Engine) archive(ctx context.Context, runID string, period Period, window fleet.DateRange, summary Summary, outcomes []Outcome, rows []domain.ReportRow) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	run := domain.Run{
		ID:          runID,
		Period:      period.Name,
		DateFrom:    window.From.Format(time.RFC3339),
		DateTo:      window.To.Format(time.RFC3339),
		Processed:   summary.Processed,
		Skipped:     summary.Skipped,
		Inactive:    summary.Inactive,
		RowsWritten: summary.RowsWritten,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertRun(ctx, tx, run); err != nil {
		return err
	}
	for _, row := range rows {
		if err := e.Repo.InsertReportRow(ctx, tx, runID, row); err != nil {
			return err
		}
	}
	for _, o := range outcomes {
		if o.SkipReason == "" {
			continue
		}
		if err := e.Events.Append(ctx, tx, events.TypeDriverSkipped, runID, "driver", o.DriverID, events.EventPayload{
			"park_id": o.ParkID,
			"reason":  o.SkipReason,
		}); err != nil {
			return err
		}
	}
	if err := e.Events.Append(ctx, tx, events.TypeReportMerged, runID, "report", e.Config.Report.Path, events.EventPayload{
		"appended": summary.RowsWritten,
		"total":    summary.ReportRows,
	}); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRunCompleted, runID, "run", runID, events.EventPayload{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"inactive":  summary.Inactive,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func rowID(runID, parkID, driverID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(runID+"|"+parkID+"|"+driverID)).String()
}
