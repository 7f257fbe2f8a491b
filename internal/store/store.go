package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hesapla/backend/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidProduct = errors.New("invalid product")
	ErrDuplicateSKU   = errors.New("duplicate sku")
	ErrInvalidUser    = errors.New("invalid user")
	ErrStaleCatalog   = errors.New("stale catalog")
	// ErrStaleProduct means a compare-and-set write lost to a concurrent edit.
	ErrStaleProduct = errors.New("stale product")
)

// PriceChange is a compare-and-set update of a product's cost and sale
// price. The write only happens while the stored values still equal the
// Old pair.
type PriceChange struct {
	SKU              string
	OldPurchasePrice decimal.Decimal
	OldSalePrice     decimal.Decimal
	NewPurchasePrice decimal.Decimal
	NewSalePrice     decimal.Decimal
	At               time.Time
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	RepriceProduct(ctx context.Context, change PriceChange) (*domain.Product, error)
	// CatalogRevision changes whenever any product row changes.
	CatalogRevision(ctx context.Context) (string, error)
	CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error
	ListPriceHistory(ctx context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// ValidateProduct enforces the row rules every Repository implementation
// shares.
func ValidateProduct(p domain.Product) error {
	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: sku and name are required", ErrInvalidProduct)
	}
	if p.PurchasePrice.IsNegative() || p.SalePrice.IsNegative() || p.VATRatePercent.IsNegative() {
		return fmt.Errorf("%w: prices and vat rate must be >= 0", ErrInvalidProduct)
	}
	if !isCents(p.PurchasePrice) || !isCents(p.SalePrice) || !isCents(p.VATRatePercent) {
		return fmt.Errorf("%w: prices and vat rate allow at most %d decimals", ErrInvalidProduct, CentPlaces)
	}
	return nil
}

// ValidatePriceChange checks the new values of a reprice write.
func ValidatePriceChange(c PriceChange) error {
	if c.NewPurchasePrice.IsNegative() || c.NewSalePrice.IsNegative() {
		return fmt.Errorf("%w: prices must be >= 0", ErrInvalidProduct)
	}
	if !isCents(c.NewPurchasePrice) || !isCents(c.NewSalePrice) {
		return fmt.Errorf("%w: prices allow at most %d decimals", ErrInvalidProduct, CentPlaces)
	}
	return nil
}

// CentPlaces matches the NUMERIC scale of the price columns.
const CentPlaces = 2

func isCents(v decimal.Decimal) bool {
	return v.Equal(v.Round(CentPlaces))
}
