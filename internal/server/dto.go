package server

import "github.com/NikitaKurabtsev/taxi-reports/internal/domain"

// RunResponse mirrors an archived run.
type RunResponse struct {
	ID          string `json:"id"`
	Period      string `json:"period"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	Processed   int    `json:"processed"`
	Skipped     int    `json:"skipped"`
	Inactive    int    `json:"inactive"`
	RowsWritten int    `json:"rows_written"`
	CreatedAt   string `json:"created_at"`
}

// RowResponse is one archived report row. Monetary amounts are decimal
// strings.
type RowResponse struct {
	ID                 string `json:"id"`
	Date               string `json:"date"`
	ParkID             string `json:"park_id"`
	DriverID           string `json:"driver_id"`
	DriverName         string `json:"driver_name"`
	CarID              string `json:"car_id,omitempty"`
	Orders             int    `json:"orders"`
	Hours              int    `json:"hours"`
	Cash               string `json:"cash"`
	Cashless           string `json:"cashless"`
	ParkCommission     string `json:"park_commission"`
	PlatformCommission string `json:"platform_commission"`
}

// EventResponse is one archive event log entry.
type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json,omitempty"`
}

func runResponse(r domain.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Period:      r.Period,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
		Processed:   r.Processed,
		Skipped:     r.Skipped,
		Inactive:    r.Inactive,
		RowsWritten: r.RowsWritten,
		CreatedAt:   r.CreatedAt,
	}
}

func mapRuns(items []domain.Run) []RunResponse {
	out := make([]RunResponse, 0, len(items))
	for _, r := range items {
		out = append(out, runResponse(r))
	}
	return out
}

func rowResponse(r domain.ReportRow) RowResponse {
	return RowResponse{
		ID:                 r.ID,
		Date:               r.Date,
		ParkID:             r.ParkID,
		DriverID:           r.DriverID,
		DriverName:         r.DriverName,
		CarID:              r.CarID,
		Orders:             r.Orders,
		Hours:              r.Hours,
		Cash:               r.Cash.String(),
		Cashless:           r.Cashless.String(),
		ParkCommission:     r.ParkCommission.String(),
		PlatformCommission: r.PlatformCommission.String(),
	}
}

func mapRows(items []domain.ReportRow) []RowResponse {
	out := make([]RowResponse, 0, len(items))
	for _, r := range items {
		out = append(out, rowResponse(r))
	}
	return out
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			RunID:      e.RunID,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
		})
	}
	return out
}
