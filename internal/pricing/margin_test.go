package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("expected %s %s, got %s", label, want, got.String())
	}
}

func TestComputeProfit(t *testing.T) {
	res, err := ComputeProfit(d("80"), d("100"))
	if err != nil {
		t.Fatalf("compute profit failed: %v", err)
	}
	assertDecimal(t, "profit amount", res.ProfitAmount, "20")
	assertDecimal(t, "profit percent", res.ProfitPercent, "20")
}

func TestComputeProfitZeroSalePrice(t *testing.T) {
	res, err := ComputeProfit(d("15"), decimal.Zero)
	if err != nil {
		t.Fatalf("compute profit failed: %v", err)
	}
	assertDecimal(t, "profit amount", res.ProfitAmount, "-15")
	assertDecimal(t, "profit percent", res.ProfitPercent, "0")
}

func TestComputeProfitRejectsNegativeInput(t *testing.T) {
	if _, err := ComputeProfit(d("-1"), d("10")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative cost, got %v", err)
	}
	if _, err := ComputeProfit(d("1"), d("-10")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative price, got %v", err)
	}
}

func TestSuggestSalePrice(t *testing.T) {
	cases := []struct {
		cost, margin, want string
	}{
		{"50", "50", "100"},
		{"80", "20", "100"},
		{"33", "25", "44"},
		{"10", "33", "15"},
		{"0", "40", "0"},
		{"100", "-25", "80"},
	}
	for _, tc := range cases {
		got, err := SuggestSalePrice(d(tc.cost), d(tc.margin), d("20"))
		if err != nil {
			t.Fatalf("suggest %s@%s failed: %v", tc.cost, tc.margin, err)
		}
		assertDecimal(t, "suggested price for cost "+tc.cost, got, tc.want)
	}
}

func TestSuggestSalePriceIgnoresVATRate(t *testing.T) {
	a, err := SuggestSalePrice(d("72.5"), d("30"), decimal.Zero)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	b, err := SuggestSalePrice(d("72.5"), d("30"), d("20"))
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("expected VAT rate not to change the suggestion, got %s and %s", a, b)
	}
}

func TestSuggestSalePriceRejectsMarginAtOrAboveHundred(t *testing.T) {
	for _, m := range []string{"100", "150"} {
		if _, err := SuggestSalePrice(d("10"), d(m), d("20")); !errors.Is(err, ErrMarginOutOfRange) {
			t.Fatalf("expected ErrMarginOutOfRange for margin %s, got %v", m, err)
		}
	}
	if _, err := SuggestSalePrice(d("-10"), d("10"), d("20")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative cost, got %v", err)
	}
}

func TestSuggestThenComputeRoundTrip(t *testing.T) {
	costs := []string{"1", "7.35", "19.99", "250", "1234.56"}
	margins := []string{"0", "5", "12.5", "33.33", "60", "90"}
	for _, c := range costs {
		for _, m := range margins {
			price, err := SuggestSalePrice(d(c), d(m), d("20"))
			if err != nil {
				t.Fatalf("suggest %s@%s failed: %v", c, m, err)
			}
			res, err := ComputeProfit(d(c), price)
			if err != nil {
				t.Fatalf("compute %s@%s failed: %v", c, m, err)
			}
			// Rounding the price up by less than one unit can only raise the
			// margin, by at most 100/price percentage points.
			if res.ProfitPercent.LessThan(d(m).Sub(d("0.01"))) {
				t.Fatalf("expected margin >= %s for cost %s, got %s", m, c, res.ProfitPercent)
			}
			slack := hundred.Div(price).Add(d("0.01"))
			if res.ProfitPercent.Sub(d(m)).GreaterThan(slack) {
				t.Fatalf("expected margin within %s of %s for cost %s, got %s", slack, m, c, res.ProfitPercent)
			}
		}
	}
}

func TestCostModelSuggestSalePrice(t *testing.T) {
	model := CostModel{PurchasePrice: d("60"), VATRatePercent: d("10")}
	got, err := model.SuggestSalePrice(d("40"))
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	assertDecimal(t, "suggested price", got, "100")
}

func TestQuoteSalePrice(t *testing.T) {
	quote, err := QuoteSalePrice(d("60"), d("40"), d("25"))
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	assertDecimal(t, "sale price", quote.SalePrice, "100")
	assertDecimal(t, "net of vat", quote.NetOfVAT, "80")
	assertDecimal(t, "vat amount", quote.VATAmount, "20")
	assertDecimal(t, "margin", quote.MarginPercent, "40")
	assertDecimal(t, "markup", quote.MarkupPercent, "66.67")
}

func TestMarkupPercent(t *testing.T) {
	got, err := MarkupPercent(d("80"), d("100"))
	if err != nil {
		t.Fatalf("markup failed: %v", err)
	}
	assertDecimal(t, "markup", got, "25")

	if _, err := MarkupPercent(decimal.Zero, d("100")); !errors.Is(err, ErrUndefinedRatio) {
		t.Fatalf("expected ErrUndefinedRatio for zero cost, got %v", err)
	}
}

func TestMarginMarkupConversions(t *testing.T) {
	markup, err := MarkupFromMargin(d("20"))
	if err != nil {
		t.Fatalf("markup from margin failed: %v", err)
	}
	assertDecimal(t, "markup", markup, "25")

	margin, err := MarginFromMarkup(d("25"))
	if err != nil {
		t.Fatalf("margin from markup failed: %v", err)
	}
	assertDecimal(t, "margin", margin, "20")

	if _, err := MarkupFromMargin(d("100")); !errors.Is(err, ErrMarginOutOfRange) {
		t.Fatalf("expected ErrMarginOutOfRange, got %v", err)
	}
	if _, err := MarginFromMarkup(d("-100")); !errors.Is(err, ErrMarginOutOfRange) {
		t.Fatalf("expected ErrMarginOutOfRange, got %v", err)
	}
}

func TestComputeProfitKeepsSubCentAmount(t *testing.T) {
	cases := []struct {
		cost, price, want string
	}{
		{"1.005", "2", "0.995"},
		{"0.001", "0", "-0.001"},
		{"12.3456", "20.1", "7.7544"},
	}
	for _, tc := range cases {
		res, err := ComputeProfit(d(tc.cost), d(tc.price))
		if err != nil {
			t.Fatalf("compute profit(%s, %s) failed: %v", tc.cost, tc.price, err)
		}
		assertDecimal(t, "profit amount", res.ProfitAmount, tc.want)
		if !res.ProfitAmount.Equal(d(tc.price).Sub(d(tc.cost))) {
			t.Fatalf("expected profit amount to equal price-cost for %s/%s", tc.cost, tc.price)
		}
	}

	res, _ := ComputeProfit(d("1.005"), d("2"))
	assertDecimal(t, "profit percent", res.ProfitPercent, "49.75")
}
