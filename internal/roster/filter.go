// Package roster selects ledger drivers eligible for a reporting run.
package roster

import (
	"time"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

// Ledger status markers for drivers still on the payroll.
const (
	StatusActive  = "Работает"
	StatusEnRoute = "На линии"
)

// Filter returns the drivers eligible for processing: dismissed after the
// cutoff or still active, with a non-empty identifier and a tracked
// department. Drivers with an empty department are always excluded.
// Dismissal timestamps compare lexicographically, which is sound for the
// ledger's ISO 8601 values.
func Filter(records []domain.DriverRecord, cutoff time.Time, excludedDepartments []string) []domain.DriverRecord {
	excluded := make(map[string]struct{}, len(excludedDepartments)+1)
	excluded[""] = struct{}{}
	for _, d := range excludedDepartments {
		excluded[d] = struct{}{}
	}
	cutoffISO := cutoff.Format(time.RFC3339)

	var out []domain.DriverRecord
	for _, r := range records {
		if r.DriverID == "" {
			continue
		}
		if _, drop := excluded[r.Department]; drop {
			continue
		}
		if !employed(r, cutoffISO) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func employed(r domain.DriverRecord, cutoffISO string) bool {
	if r.Status == StatusActive || r.Status == StatusEnRoute {
		return true
	}
	return r.DismissalDate > cutoffISO
}
