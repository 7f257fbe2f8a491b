package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CostModel is a single product's acquisition cost and the VAT rate that
// applies to its sale.
type CostModel struct {
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	VATRatePercent decimal.Decimal `json:"vat_rate_percent"`
}

// MarginResult is profit expressed as an amount and as a margin on revenue.
// ProfitAmount is exact; only the percent is rounded for display.
type MarginResult struct {
	ProfitAmount  decimal.Decimal `json:"profit_amount"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
}

// PriceQuote is a suggested VAT-inclusive sale price together with its VAT
// decomposition for display.
type PriceQuote struct {
	SalePrice     decimal.Decimal `json:"sale_price"`
	NetOfVAT      decimal.Decimal `json:"net_of_vat"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
}

// ComputeProfit returns salePrice-cost and the margin on revenue. A zero sale
// price yields a zero percent.
func ComputeProfit(cost, salePrice decimal.Decimal) (MarginResult, error) {
	if err := requireNonNegative(named{"cost", cost}, named{"sale_price", salePrice}); err != nil {
		return MarginResult{}, err
	}
	return computeProfit(cost, salePrice), nil
}

func computeProfit(cost, salePrice decimal.Decimal) MarginResult {
	profit := salePrice.Sub(cost)
	return MarginResult{
		ProfitAmount:  profit,
		ProfitPercent: RoundDisplay(percentOf(profit, salePrice)),
	}
}

// SuggestSalePrice returns the VAT-inclusive price, rounded up to a whole
// unit, at which desiredMarginPercent of the price is profit. The VAT rate is
// validated but does not enter the formula: the margin is always measured
// against the full price the customer pays. Use QuoteSalePrice for the VAT
// split of the same figure.
func SuggestSalePrice(cost, desiredMarginPercent, vatRatePercent decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative(named{"cost", cost}, named{"vat_rate_percent", vatRatePercent}); err != nil {
		return decimal.Zero, err
	}
	return priceForMargin(cost, desiredMarginPercent)
}

// SuggestSalePrice is SuggestSalePrice applied to the model's own cost and VAT rate.
func (c CostModel) SuggestSalePrice(desiredMarginPercent decimal.Decimal) (decimal.Decimal, error) {
	return SuggestSalePrice(c.PurchasePrice, desiredMarginPercent, c.VATRatePercent)
}

// QuoteSalePrice is SuggestSalePrice plus the figures an operator needs to
// communicate the price: the VAT-exclusive part, the VAT part and the margin
// and markup the rounded price actually realizes.
func QuoteSalePrice(cost, desiredMarginPercent, vatRatePercent decimal.Decimal) (PriceQuote, error) {
	price, err := SuggestSalePrice(cost, desiredMarginPercent, vatRatePercent)
	if err != nil {
		return PriceQuote{}, err
	}

	net := withoutVAT(price, vatRatePercent)
	quote := PriceQuote{
		SalePrice:     price,
		NetOfVAT:      RoundDisplay(net),
		VATAmount:     RoundDisplay(price.Sub(net)),
		MarginPercent: computeProfit(cost, price).ProfitPercent,
	}
	if !cost.IsZero() {
		quote.MarkupPercent = RoundDisplay(percentOf(price.Sub(cost), cost))
	}
	return quote, nil
}

// priceForMargin inverts margin on revenue: cost / (1 - m/100), rounded up.
// Negative margins are allowed and price below cost.
func priceForMargin(cost, marginPercent decimal.Decimal) (decimal.Decimal, error) {
	if err := requireMarginBelowHundred(marginPercent); err != nil {
		return decimal.Zero, err
	}
	keep := one.Sub(marginPercent.Div(hundred))
	return CeilToUnit(cost.Div(keep)), nil
}

// MarkupPercent is profit relative to cost, (price-cost)/cost*100. It is not
// a margin and is reported under its own name.
func MarkupPercent(cost, salePrice decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative(named{"cost", cost}, named{"sale_price", salePrice}); err != nil {
		return decimal.Zero, err
	}
	if cost.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: markup with zero cost", ErrUndefinedRatio)
	}
	return RoundDisplay(percentOf(salePrice.Sub(cost), cost)), nil
}

// MarkupFromMargin converts a margin on revenue to the equivalent markup on
// cost: m/(100-m)*100.
func MarkupFromMargin(marginPercent decimal.Decimal) (decimal.Decimal, error) {
	if err := requireMarginBelowHundred(marginPercent); err != nil {
		return decimal.Zero, err
	}
	return RoundDisplay(percentOf(marginPercent, hundred.Sub(marginPercent))), nil
}

// MarginFromMarkup converts a markup on cost to the equivalent margin on
// revenue: k/(100+k)*100. Markups at or below -100% have no price.
func MarginFromMarkup(markupPercent decimal.Decimal) (decimal.Decimal, error) {
	base := hundred.Add(markupPercent)
	if !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: markup %s%% must be above -100%%", ErrMarginOutOfRange, markupPercent.String())
	}
	return RoundDisplay(percentOf(markupPercent, base)), nil
}
