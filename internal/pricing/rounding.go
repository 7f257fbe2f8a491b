package pricing

import "github.com/shopspring/decimal"

// DisplayPlaces is the number of decimals used for every reported figure
// that is not a suggested price.
const DisplayPlaces = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// CeilToUnit rounds a suggested price up to the next whole currency unit so
// a suggestion never under-prices by a fraction.
func CeilToUnit(v decimal.Decimal) decimal.Decimal {
	return v.Ceil()
}

// RoundDisplay rounds a reported figure half away from zero to DisplayPlaces.
func RoundDisplay(v decimal.Decimal) decimal.Decimal {
	return v.Round(DisplayPlaces)
}

// percentOf returns part/whole*100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func percentAmount(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred)
}

func grow(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(one.Add(percent.Div(hundred)))
}

func withoutVAT(gross, vatPercent decimal.Decimal) decimal.Decimal {
	return gross.Div(one.Add(vatPercent.Div(hundred)))
}
