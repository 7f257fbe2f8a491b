package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"hesapla/backend/internal/pricing"
)

type Product struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Barcode        string          `json:"barcode"`
	Category       string          `json:"category"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	VATRatePercent decimal.Decimal `json:"vat_rate_percent"`
	Active         bool            `json:"active"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CatalogItem is the read-only projection input for the product.
func (p Product) CatalogItem() pricing.CatalogItem {
	return pricing.CatalogItem{
		ID:            p.SKU,
		Name:          p.Name,
		Barcode:       p.Barcode,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
	}
}

type ProductCreateRequest struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Barcode        string          `json:"barcode"`
	Category       string          `json:"category"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	VATRatePercent decimal.Decimal `json:"vat_rate_percent"`
}

type ProductUpdateRequest struct {
	Name           *string          `json:"name,omitempty"`
	Barcode        *string          `json:"barcode,omitempty"`
	Category       *string          `json:"category,omitempty"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price,omitempty"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
	VATRatePercent *decimal.Decimal `json:"vat_rate_percent,omitempty"`
	Active         *bool            `json:"active,omitempty"`
}

const (
	PriceChangeManual        = "manual"
	PriceChangeBulkRepricing = "bulk_repricing"
)

type ProductPriceHistory struct {
	ID               string              `json:"id"`
	SKU              string              `json:"sku"`
	OldPurchasePrice decimal.Decimal     `json:"old_purchase_price"`
	NewPurchasePrice decimal.Decimal     `json:"new_purchase_price"`
	OldSalePrice     decimal.Decimal     `json:"old_sale_price"`
	NewSalePrice     decimal.Decimal     `json:"new_sale_price"`
	AppliedPercent   decimal.NullDecimal `json:"applied_percent"`
	Reason           string              `json:"reason"`
	ChangedBy        string              `json:"changed_by"`
	ChangedAt        time.Time           `json:"changed_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProfitRequest struct {
	Cost      decimal.Decimal `json:"cost"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

type ProfitResponse struct {
	pricing.MarginResult
	MarkupPercent decimal.NullDecimal `json:"markup_percent"`
}

type SuggestPriceRequest struct {
	Cost                 decimal.Decimal `json:"cost"`
	DesiredMarginPercent decimal.Decimal `json:"desired_margin_percent"`
	VATRatePercent       decimal.Decimal `json:"vat_rate_percent"`
}

type DesiRequest struct {
	pricing.PackageDimensions
	ActualWeightKg *decimal.Decimal `json:"actual_weight_kg,omitempty"`
}

type DesiResponse struct {
	Desi           decimal.Decimal     `json:"desi"`
	BillableWeight decimal.NullDecimal `json:"billable_weight"`
}

type RepricingSimulateRequest struct {
	CostIncreasePercent decimal.Decimal `json:"cost_increase_percent"`
	TargetMarginPercent decimal.Decimal `json:"target_margin_percent"`
	Query               string          `json:"query"`
	Limit               int             `json:"limit"`
}

func (r RepricingSimulateRequest) Parameters() pricing.SimulationParameters {
	return pricing.SimulationParameters{
		CostIncreasePercent: r.CostIncreasePercent,
		TargetMarginPercent: r.TargetMarginPercent,
	}
}

type RepricingSimulateResponse struct {
	Revision   string                       `json:"revision"`
	Parameters pricing.SimulationParameters `json:"parameters"`
	Cached     bool                         `json:"cached"`
	pricing.View
}

type RepricingApplyRequest struct {
	CostIncreasePercent decimal.Decimal `json:"cost_increase_percent"`
	TargetMarginPercent decimal.Decimal `json:"target_margin_percent"`
	// SKUs restricts the commit to a subset of the simulation; empty means all.
	SKUs             []string `json:"skus,omitempty"`
	ExpectedRevision string   `json:"expected_revision,omitempty"`
	ManagerPIN       string   `json:"manager_pin"`
}

func (r RepricingApplyRequest) Parameters() pricing.SimulationParameters {
	return pricing.SimulationParameters{
		CostIncreasePercent: r.CostIncreasePercent,
		TargetMarginPercent: r.TargetMarginPercent,
	}
}

const (
	ApplyStatusApplied = "applied"
	ApplyStatusSkipped = "skipped"
	ApplyStatusFailed  = "failed"
	ApplyStatusStale   = "stale"
)

type RepricingApplyStatus struct {
	SKU          string          `json:"sku"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	OldCost      decimal.Decimal `json:"old_cost"`
	NewCost      decimal.Decimal `json:"new_cost"`
	OldSalePrice decimal.Decimal `json:"old_sale_price"`
	NewSalePrice decimal.Decimal `json:"new_sale_price"`
}

type RepricingApplyResponse struct {
	Revision   string                       `json:"revision"`
	Parameters pricing.SimulationParameters `json:"parameters"`
	Applied    int                          `json:"applied"`
	Skipped    int                          `json:"skipped"`
	Failed     int                          `json:"failed"`
	Stale      int                          `json:"stale"`
	Statuses   []RepricingApplyStatus       `json:"statuses"`
}
