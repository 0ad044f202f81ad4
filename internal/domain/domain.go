package domain

import "github.com/shopspring/decimal"

// DriverRecord is one row of the ledger roster.
type DriverRecord struct {
	DriverID      string `json:"DefaultID"`
	Status        string `json:"Status"`
	DismissalDate string `json:"DismissalDate"`
	Department    string `json:"CarDepartment"`
}

// DriverProfile is the platform-side identity for a driver.
type DriverProfile struct {
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	CarID      string `json:"car_id"`
}

// FullName joins the name parts, skipping absent ones.
func (p DriverProfile) FullName() string {
	out := ""
	for _, part := range []string{p.LastName, p.FirstName, p.MiddleName} {
		if part == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += part
	}
	return out
}

// Order is a completed ride returned by the platform.
type Order struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	BookedAt      string          `json:"booked_at"`
	EndedAt       string          `json:"ended_at"`
	PaymentMethod string          `json:"payment_method"`
	Price         decimal.Decimal `json:"price"`
}

// Transaction is a financial ledger entry tied to an order.
type Transaction struct {
	OrderID    string          `json:"order_id"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// DriverAggregate holds one driver's totals for a reporting period.
type DriverAggregate struct {
	DriverID           string          `json:"driver_id"`
	DriverName         string          `json:"driver_name"`
	CarID              string          `json:"car_id,omitempty"`
	Orders             int             `json:"orders"`
	Hours              int             `json:"hours"`
	Cash               decimal.Decimal `json:"cash"`
	Cashless           decimal.Decimal `json:"cashless"`
	ParkCommission     decimal.Decimal `json:"park_commission"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
}

// ReportRow is a DriverAggregate snapshot tagged with a report date and park.
type ReportRow struct {
	ID                 string          `json:"id,omitempty"`
	Date               string          `json:"date"`
	ParkID             string          `json:"park_id,omitempty"`
	DriverID           string          `json:"driver_id,omitempty"`
	DriverName         string          `json:"driver_name"`
	CarID              string          `json:"car_id,omitempty"`
	Orders             int             `json:"orders"`
	Hours              int             `json:"hours"`
	Cash               decimal.Decimal `json:"cash"`
	Cashless           decimal.Decimal `json:"cashless"`
	ParkCommission     decimal.Decimal `json:"park_commission"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
}

// Run records one pipeline execution in the archive.
type Run struct {
	ID          string `json:"id"`
	Period      string `json:"period"`
	DateFrom    string `json:"date_from" format:"date-time"`
	DateTo      string `json:"date_to" format:"date-time"`
	Processed   int    `json:"processed"`
	Skipped     int    `json:"skipped"`
	Inactive    int    `json:"inactive"`
	RowsWritten int    `json:"rows_written"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// Event is one entry of the archive event log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
