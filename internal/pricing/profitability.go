package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProfitabilityInput is the cost structure of one sale. Every percentage is
// applied to the gross, VAT-inclusive SalePrice.
type ProfitabilityInput struct {
	Cost               decimal.Decimal `json:"cost"`
	Shipping           decimal.Decimal `json:"shipping"`
	CommissionPercent  decimal.Decimal `json:"commission_percent"`
	AdsPercent         decimal.Decimal `json:"ads_percent"`
	VATPercent         decimal.Decimal `json:"vat_percent"`
	WithholdingPercent decimal.Decimal `json:"withholding_percent"`
	SalePrice          decimal.Decimal `json:"sale_price"`
}

// ProfitabilityResult carries every intermediate figure of the calculation.
// ROIPercent is null when the cost basis (cost + shipping) is zero.
type ProfitabilityResult struct {
	NetRevenue        decimal.Decimal     `json:"net_revenue"`
	VATAmount         decimal.Decimal     `json:"vat_amount"`
	CommissionAmount  decimal.Decimal     `json:"commission_amount"`
	AdsAmount         decimal.Decimal     `json:"ads_amount"`
	WithholdingAmount decimal.Decimal     `json:"withholding_amount"`
	TotalExpenses     decimal.Decimal     `json:"total_expenses"`
	NetProfit         decimal.Decimal     `json:"net_profit"`
	TotalCostInclVAT  decimal.Decimal     `json:"total_cost_incl_vat"`
	MarginPercent     decimal.Decimal     `json:"margin_percent"`
	ROIPercent        decimal.NullDecimal `json:"roi_percent"`
}

// ROI returns the return on the cost basis, or ErrUndefinedRatio when the
// basis was zero.
func (r ProfitabilityResult) ROI() (decimal.Decimal, error) {
	if !r.ROIPercent.Valid {
		return decimal.Zero, fmt.Errorf("%w: roi with zero cost basis", ErrUndefinedRatio)
	}
	return r.ROIPercent.Decimal, nil
}

// CalculateProfitability computes net profit, margin on revenue and ROI for a
// single sale. Figures are computed at full precision and rounded to
// DisplayPlaces only when reported.
func CalculateProfitability(in ProfitabilityInput) (ProfitabilityResult, error) {
	if err := requireNonNegative(
		named{"cost", in.Cost},
		named{"shipping", in.Shipping},
		named{"commission_percent", in.CommissionPercent},
		named{"ads_percent", in.AdsPercent},
		named{"vat_percent", in.VATPercent},
		named{"withholding_percent", in.WithholdingPercent},
		named{"sale_price", in.SalePrice},
	); err != nil {
		return ProfitabilityResult{}, err
	}

	netRevenue := withoutVAT(in.SalePrice, in.VATPercent)
	vatAmount := in.SalePrice.Sub(netRevenue)
	commission := percentAmount(in.SalePrice, in.CommissionPercent)
	ads := percentAmount(in.SalePrice, in.AdsPercent)
	withholding := percentAmount(in.SalePrice, in.WithholdingPercent)

	expenses := in.Cost.Add(in.Shipping).Add(commission).Add(ads).Add(withholding)
	netProfit := netRevenue.Sub(expenses)

	result := ProfitabilityResult{
		NetRevenue:        RoundDisplay(netRevenue),
		VATAmount:         RoundDisplay(vatAmount),
		CommissionAmount:  RoundDisplay(commission),
		AdsAmount:         RoundDisplay(ads),
		WithholdingAmount: RoundDisplay(withholding),
		TotalExpenses:     RoundDisplay(expenses),
		NetProfit:         RoundDisplay(netProfit),
		TotalCostInclVAT:  RoundDisplay(expenses.Add(vatAmount)),
		MarginPercent:     RoundDisplay(percentOf(netProfit, in.SalePrice)),
	}

	basis := in.Cost.Add(in.Shipping)
	if basis.IsPositive() {
		result.ROIPercent = decimal.NewNullDecimal(RoundDisplay(percentOf(netProfit, basis)))
	}

	return result, nil
}
