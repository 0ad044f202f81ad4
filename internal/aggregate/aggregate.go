// Package aggregate reduces one driver's orders and transactions into a
// period aggregate.
package aggregate

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/NikitaKurabtsev/taxi-reports/internal/classify"
	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

const orderStatusComplete = "complete"

// Payment methods the platform reports on orders.
const (
	PaymentCash     = "cash"
	PaymentCashless = "cashless"
)

// Hours converts platform supply seconds to whole hours using
// round-half-to-even: 1800 s rounds to 0 h, 5400 s to 2 h.
func Hours(supplySeconds int64) int {
	return int(math.RoundToEven(float64(supplySeconds) / 3600))
}

// Build computes the aggregate for one driver. The second return value is
// false when the driver had no supply activity in the period; such drivers
// produce no report row.
//
// The upstream orders query is already filtered to complete orders, but the
// status is re-checked here before any price reaches a sum. Orders with an
// unrecognized payment method count toward the order total without
// contributing to either sum. Transactions land in exactly one commission
// bucket or are ignored.
func Build(
	record domain.DriverRecord,
	profile domain.DriverProfile,
	orders []domain.Order,
	transactions []domain.Transaction,
	supplySeconds int64,
) (domain.DriverAggregate, bool) {
	if supplySeconds == 0 {
		return domain.DriverAggregate{}, false
	}
	agg := domain.DriverAggregate{
		DriverID:           record.DriverID,
		DriverName:         profile.FullName(),
		CarID:              profile.CarID,
		Orders:             len(orders),
		Hours:              Hours(supplySeconds),
		Cash:               decimal.Zero,
		Cashless:           decimal.Zero,
		ParkCommission:     decimal.Zero,
		PlatformCommission: decimal.Zero,
	}
	for _, o := range orders {
		if o.Status != orderStatusComplete {
			continue
		}
		switch o.PaymentMethod {
		case PaymentCash:
			agg.Cash = agg.Cash.Add(o.Price)
		case PaymentCashless:
			agg.Cashless = agg.Cashless.Add(o.Price)
		}
	}
	for _, tx := range transactions {
		switch classify.Classify(tx.CategoryID) {
		case classify.ParkCommission:
			agg.ParkCommission = agg.ParkCommission.Add(tx.Amount)
		case classify.PlatformCommission:
			agg.PlatformCommission = agg.PlatformCommission.Add(tx.Amount)
		}
	}
	return agg, true
}
