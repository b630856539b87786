package pricing

import (
	"fmt"
	"strings"
)

// Money represents a monetary value stored in minor units (cents).
type Money = int64

// Base price for every custom case, before option surcharges.
const BasePrice Money = 14_00

// Finish and material option identifiers as stored on a configuration.
const (
	FinishSmooth   = "smooth"
	FinishTextured = "textured"

	MaterialSilicone      = "silicone"
	MaterialPolycarbonate = "polycarbonate"
)

// Option surcharges are a fixed lookup table. Unknown options carry no
// surcharge rather than failing, matching storefront behaviour where new
// zero-cost options ship without a pricing release.
var (
	finishSurcharge = map[string]Money{
		FinishTextured: 3_00,
	}
	materialSurcharge = map[string]Money{
		MaterialPolycarbonate: 5_00,
	}
)

// Total computes the charge for a configuration: base price plus the
// surcharges for the selected finish and material.
func Total(finish, material string) Money {
	total := BasePrice
	total += finishSurcharge[normalise(finish)]
	total += materialSurcharge[normalise(material)]
	return total
}

// Format renders a minor-unit amount as a display string, e.g. 1900 -> "$19.00".
func Format(amount Money) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s$%d.%02d", sign, amount/100, amount%100)
}

// Decimal renders a minor-unit amount the way the provider API expects,
// e.g. 1900 -> "19.00".
func Decimal(amount Money) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func normalise(option string) string {
	return strings.ToLower(strings.TrimSpace(option))
}
