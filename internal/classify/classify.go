// Package classify maps platform transaction categories to commission buckets.
package classify

import "sort"

// Bucket is the commission bucket a transaction contributes to.
type Bucket int

const (
	// Ignored transactions contribute to no sum.
	Ignored Bucket = iota
	// ParkCommission is a fee attributed to the park.
	ParkCommission
	// PlatformCommission is a fee attributed to the platform.
	PlatformCommission
)

func (b Bucket) String() string {
	switch b {
	case ParkCommission:
		return "park_commission"
	case PlatformCommission:
		return "platform_commission"
	default:
		return "ignored"
	}
}

var parkFees = map[string]struct{}{
	"partner_bonus_fee":            {},
	"partner_ride_fee":             {},
	"partner_subscription_fee":     {},
	"platform_other_gas_fleet_fee": {},
}

var platformFees = map[string]struct{}{
	"platform_bonus_fee": {},
	"platform_ride_fee":  {},
	"platform_ride_vat":  {},
}

// Classify resolves a category identifier to exactly one bucket.
// Unknown categories, including the empty string, are Ignored.
func Classify(categoryID string) Bucket {
	if _, ok := parkFees[categoryID]; ok {
		return ParkCommission
	}
	if _, ok := platformFees[categoryID]; ok {
		return PlatformCommission
	}
	return Ignored
}

// Categories returns every category identifier the classifier recognizes,
// used to pre-filter the transactions query server-side.
func Categories() []string {
	out := make([]string, 0, len(parkFees)+len(platformFees))
	for _, set := range []map[string]struct{}{parkFees, platformFees} {
		for id := range set {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
