package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/pricing"
	"hesapla/backend/internal/repricing"
	"hesapla/backend/internal/store"
	"hesapla/backend/internal/xid"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	projections    *repricing.Engine
	defaultStoreID string
	logger         zerolog.Logger
}

func New(repo store.Repository, projections *repricing.Engine, defaultStoreID string, logger zerolog.Logger) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	logger = logger.With().Str("component", "service").Logger()
	if projections == nil {
		projections = repricing.NewEngine(nil, 0, logger)
	}

	return &Service{
		repo:           repo,
		projections:    projections,
		defaultStoreID: defaultStoreID,
		logger:         logger,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		SKU:            normalizeSKU(req.SKU),
		Name:           strings.TrimSpace(req.Name),
		Barcode:        strings.TrimSpace(req.Barcode),
		Category:       strings.TrimSpace(req.Category),
		PurchasePrice:  req.PurchasePrice,
		SalePrice:      req.SalePrice,
		VATRatePercent: req.VATRatePercent,
		Active:         true,
	}
	if err := store.ValidateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "product_create", "product", created.SKU,
		fmt.Sprintf("name=%s,purchase_price=%s,sale_price=%s,vat=%s", created.Name, created.PurchasePrice, created.SalePrice, created.VATRatePercent))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	sku = normalizeSKU(sku)
	if sku == "" {
		return domain.Product{}, store.ErrInvalidProduct
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.PurchasePrice != nil {
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		updated.SalePrice = *req.SalePrice
	}
	if req.VATRatePercent != nil {
		updated.VATRatePercent = *req.VATRatePercent
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	if !existing.PurchasePrice.Equal(saved.PurchasePrice) || !existing.SalePrice.Equal(saved.SalePrice) {
		s.recordPriceHistory(ctx, domain.ProductPriceHistory{
			SKU:              saved.SKU,
			OldPurchasePrice: existing.PurchasePrice,
			NewPurchasePrice: saved.PurchasePrice,
			OldSalePrice:     existing.SalePrice,
			NewSalePrice:     saved.SalePrice,
			Reason:           domain.PriceChangeManual,
			ChangedBy:        actor.Username,
		})
	}

	for _, change := range changedFields(*existing, *saved) {
		s.logAudit(ctx, s.defaultStoreID, "product_update", "product", saved.SKU, change.detail())
	}

	return *saved, nil
}

func (s *Service) ListProductPriceHistory(ctx context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error) {
	sku = normalizeSKU(sku)
	if sku == "" {
		return nil, store.ErrInvalidProduct
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPriceHistory(ctx, sku, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, storeID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}

func (s *Service) recordPriceHistory(ctx context.Context, entry domain.ProductPriceHistory) {
	entry.ID = xid.New("ph")
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	if err := s.repo.CreatePriceHistory(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("sku", entry.SKU).Msg("failed to record price history")
	}
}

type fieldChange struct {
	field    string
	from, to string
	extra    string
}

func (c fieldChange) detail() string {
	detail := fmt.Sprintf("field=%s,old=%s,new=%s", c.field, c.from, c.to)
	if c.extra != "" {
		detail += "," + c.extra
	}
	return detail
}

// changedFields lists one entry per product field that differs, in a fixed
// order so audit rows are stable.
func changedFields(before, after domain.Product) []fieldChange {
	changes := make([]fieldChange, 0, 4)
	text := func(field, a, b string) {
		if a != b {
			changes = append(changes, fieldChange{field: field, from: a, to: b})
		}
	}
	amount := func(field string, a, b decimal.Decimal) {
		if !a.Equal(b) {
			changes = append(changes, fieldChange{field: field, from: a.String(), to: b.String()})
		}
	}

	text("name", before.Name, after.Name)
	text("barcode", before.Barcode, after.Barcode)
	text("category", before.Category, after.Category)
	amount("purchase_price", before.PurchasePrice, after.PurchasePrice)
	amount("sale_price", before.SalePrice, after.SalePrice)
	amount("vat_rate_percent", before.VATRatePercent, after.VATRatePercent)
	if before.Active != after.Active {
		changes = append(changes, fieldChange{field: "active", from: fmt.Sprint(before.Active), to: fmt.Sprint(after.Active)})
	}
	return changes
}

func (s *Service) loadCatalog(ctx context.Context) ([]pricing.CatalogItem, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.CatalogItem, 0, len(products))
	for _, p := range products {
		items = append(items, p.CatalogItem())
	}
	return items, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Actor{}, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return actor, nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
