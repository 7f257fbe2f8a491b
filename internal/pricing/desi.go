package pricing

import "github.com/shopspring/decimal"

var desiDivisor = decimal.NewFromInt(3000)

// PackageDimensions are outer package measurements in centimetres.
type PackageDimensions struct {
	WidthCm  decimal.Decimal `json:"width_cm"`
	HeightCm decimal.Decimal `json:"height_cm"`
	LengthCm decimal.Decimal `json:"length_cm"`
}

// Desi is the carrier volumetric weight, W*H*L/3000, rounded to two decimals.
func Desi(d PackageDimensions) (decimal.Decimal, error) {
	if err := requireNonNegative(
		named{"width_cm", d.WidthCm},
		named{"height_cm", d.HeightCm},
		named{"length_cm", d.LengthCm},
	); err != nil {
		return decimal.Zero, err
	}
	volume := d.WidthCm.Mul(d.HeightCm).Mul(d.LengthCm)
	return RoundDisplay(volume.Div(desiDivisor)), nil
}

// BillableWeight is the larger of the package desi and its actual weight in
// kilograms, which is what carriers charge for.
func BillableWeight(d PackageDimensions, actualKg decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative(named{"actual_kg", actualKg}); err != nil {
		return decimal.Zero, err
	}
	desi, err := Desi(d)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(desi, RoundDisplay(actualKg)), nil
}
