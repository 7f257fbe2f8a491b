package pricing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultDisplayLimit is the page size used when a view asks for none.
	DefaultDisplayLimit = 50
	// DisplayStep is how many more rows each "show more" discloses.
	DisplayStep = 50
)

// Flag marks a projection whose suggested price could not be computed.
type Flag string

const (
	FlagNone             Flag = ""
	FlagMarginOutOfRange Flag = "margin_out_of_range"
	FlagInvalidInput     Flag = "invalid_input"
)

// SimulationParameters drive a bulk repricing run. CostIncreasePercent may be
// negative down to -100. A TargetMarginPercent of zero is a sentinel meaning
// "keep each item's own current margin"; a uniform 0% margin cannot be
// requested through it.
type SimulationParameters struct {
	CostIncreasePercent decimal.Decimal `json:"cost_increase_percent"`
	TargetMarginPercent decimal.Decimal `json:"target_margin_percent"`
}

// Validate rejects parameters that cannot describe any real repricing.
func (p SimulationParameters) Validate() error {
	if p.CostIncreasePercent.LessThan(hundred.Neg()) {
		return fmt.Errorf("%w: cost_increase_percent must be >= -100, got %s", ErrInvalidInput, p.CostIncreasePercent.String())
	}
	return requireNonNegative(named{"target_margin_percent", p.TargetMarginPercent})
}

// PreservesMargin reports whether the target margin is the keep-current sentinel.
func (p SimulationParameters) PreservesMargin() bool {
	return p.TargetMarginPercent.IsZero()
}

// Key is a canonical string for the parameters; equal values give equal keys
// regardless of how they were written ("10" and "10.00").
func (p SimulationParameters) Key() string {
	return p.CostIncreasePercent.String() + "|" + p.TargetMarginPercent.String()
}

// CatalogItem is the read-only view of a product the simulator prices.
type CatalogItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
}

// Projection is the forecast for one catalog item under one set of parameters.
// NewCost is the exact shocked cost; persisting it is the caller's job.
type Projection struct {
	ItemID                       string          `json:"item_id"`
	Name                         string          `json:"name"`
	Barcode                      string          `json:"barcode"`
	OldCost                      decimal.Decimal `json:"old_cost"`
	NewCost                      decimal.Decimal `json:"new_cost"`
	OldSalePrice                 decimal.Decimal `json:"old_sale_price"`
	SuggestedSalePrice           decimal.Decimal `json:"suggested_sale_price"`
	CurrentMarginPercent         decimal.Decimal `json:"current_margin_percent"`
	EffectiveTargetMarginPercent decimal.Decimal `json:"effective_target_margin_percent"`
	NewMarginPercent             decimal.Decimal `json:"new_margin_percent"`
	Flag                         Flag            `json:"flag,omitempty"`
}

// Changed reports whether committing the projection would alter the item.
func (p Projection) Changed() bool {
	return !p.NewCost.Equal(p.OldCost) || !p.SuggestedSalePrice.Equal(p.OldSalePrice)
}

// Project computes one item's projection. Bad rows are flagged, never
// returned as errors, so a batch always completes.
func Project(item CatalogItem, params SimulationParameters) Projection {
	p := Projection{
		ItemID:       item.ID,
		Name:         item.Name,
		Barcode:      item.Barcode,
		OldCost:      item.PurchasePrice,
		OldSalePrice: item.SalePrice,
	}

	if err := requireNonNegative(named{"purchase_price", item.PurchasePrice}, named{"sale_price", item.SalePrice}); err != nil {
		p.NewCost = item.PurchasePrice
		p.SuggestedSalePrice = item.SalePrice
		p.Flag = FlagInvalidInput
		return p
	}

	current := percentOf(item.SalePrice.Sub(item.PurchasePrice), item.SalePrice)
	target := params.TargetMarginPercent
	if params.PreservesMargin() {
		target = current
	}

	// newCost stays exact; rounding it before the ceil could under-price.
	newCost := grow(item.PurchasePrice, params.CostIncreasePercent)

	p.NewCost = newCost
	p.CurrentMarginPercent = RoundDisplay(current)
	p.EffectiveTargetMarginPercent = RoundDisplay(target)

	suggested, err := priceForMargin(newCost, target)
	if err == nil && params.PreservesMargin() && item.PurchasePrice.IsPositive() && item.SalePrice.IsPositive() {
		// cost/(1-m/100) with m taken from price and cost collapses to
		// newCost*price/cost, which avoids a repeating-decimal margin.
		suggested = CeilToUnit(newCost.Mul(item.SalePrice).Div(item.PurchasePrice))
	}
	if err != nil {
		p.SuggestedSalePrice = newCost
		p.Flag = FlagMarginOutOfRange
	} else {
		p.SuggestedSalePrice = suggested
	}
	p.NewMarginPercent = RoundDisplay(percentOf(p.SuggestedSalePrice.Sub(newCost), p.SuggestedSalePrice))

	return p
}

// Simulation is an immutable set of projections for one catalog snapshot and
// one set of parameters. Fields are exported for serialization only and must
// not be modified after Simulate returns.
type Simulation struct {
	Parameters  SimulationParameters `json:"parameters"`
	Projections []Projection         `json:"projections"`
}

// Simulate projects every catalog item independently. The catalog slice is
// not modified and the projection order follows the catalog order.
func Simulate(catalog []CatalogItem, params SimulationParameters) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	projections := make([]Projection, len(catalog))
	for i, item := range catalog {
		projections[i] = Project(item, params)
	}

	return &Simulation{Parameters: params, Projections: projections}, nil
}

// View is one page of a filtered simulation.
type View struct {
	Items []Projection `json:"items"`
	// Total is the size of the whole simulation, Matched of the filtered set.
	Total   int `json:"total"`
	Matched int `json:"matched"`
	// Flagged counts flagged projections within the filtered set.
	Flagged   int  `json:"flagged"`
	Limit     int  `json:"limit"`
	HasMore   bool `json:"has_more"`
	NextLimit int  `json:"next_limit"`
}

// View filters by a case-insensitive substring of name or barcode and
// returns the first limit matches. It reads the computed projections only.
func (s *Simulation) View(query string, limit int) View {
	if limit < 1 {
		limit = DefaultDisplayLimit
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	view := View{
		Items: make([]Projection, 0, min(limit, len(s.Projections))),
		Total: len(s.Projections),
		Limit: limit,
	}
	for _, p := range s.Projections {
		if needle != "" && !matches(p, needle) {
			continue
		}
		view.Matched++
		if p.Flag != FlagNone {
			view.Flagged++
		}
		if len(view.Items) < limit {
			view.Items = append(view.Items, p)
		}
	}

	view.HasMore = view.Matched > len(view.Items)
	view.NextLimit = limit
	if view.HasMore {
		view.NextLimit = limit + DisplayStep
	}
	return view
}

func matches(p Projection, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Barcode), needle)
}

// Lookup returns the projection for one item.
func (s *Simulation) Lookup(itemID string) (Projection, bool) {
	i := slices.IndexFunc(s.Projections, func(p Projection) bool { return p.ItemID == itemID })
	if i < 0 {
		return Projection{}, false
	}
	return s.Projections[i], true
}

// Changes returns the unflagged projections that would alter their item.
func (s *Simulation) Changes() []Projection {
	changes := make([]Projection, 0, len(s.Projections))
	for _, p := range s.Projections {
		if p.Flag != FlagNone || !p.Changed() {
			continue
		}
		changes = append(changes, p)
	}
	return changes
}
