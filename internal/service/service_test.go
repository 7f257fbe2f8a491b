package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/pricing"
	"hesapla/backend/internal/repricing"
	"hesapla/backend/internal/store"
	"hesapla/backend/internal/store/memory"
)

func newTestService() *Service {
	return newTestServiceWithRepo(memory.NewSeeded(zerolog.Nop()))
}

func newTestServiceWithRepo(repo store.Repository) *Service {
	engine := repricing.NewEngine(nil, time.Minute, zerolog.Nop())
	return New(repo, engine, "main-store", zerolog.Nop())
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func staffContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: "staff"})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateProductAdminSuccess(t *testing.T) {
	svc := newTestService()

	created, err := svc.CreateProduct(adminContext(), domain.ProductCreateRequest{
		SKU:            " sku-ayran-01 ",
		Name:           "Ayran 1L",
		Barcode:        "8690637000134",
		Category:       "dairy",
		PurchasePrice:  dec("14.20"),
		SalePrice:      dec("24.90"),
		VATRatePercent: dec("1"),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if created.SKU != "SKU-AYRAN-01" || !created.Active {
		t.Fatalf("expected normalized active product, got %+v", created)
	}

	logs, err := svc.ListAuditLogs(adminContext(), "", "", 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "product_create" {
		t.Fatalf("expected one product_create audit row, got %+v", logs)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(staffContext(), domain.ProductCreateRequest{
		SKU:       "SKU-X",
		Name:      "X",
		SalePrice: dec("1"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(adminContext(), domain.ProductCreateRequest{
		SKU:           "SKU-NEG",
		Name:          "Negative",
		PurchasePrice: dec("-1"),
		SalePrice:     dec("10"),
	})
	if !errors.Is(err, store.ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct, got %v", err)
	}
}

func TestUpdateProductRecordsHistoryAndFieldAudit(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	saved, err := svc.UpdateProduct(ctx, "sku-kahve-01", domain.ProductUpdateRequest{
		PurchasePrice: ptr(dec("40")),
		SalePrice:     ptr(dec("69.90")),
		Name:          ptr("Turk Kahvesi 100 g"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !saved.SalePrice.Equal(dec("69.90")) {
		t.Fatalf("expected new sale price, got %s", saved.SalePrice)
	}

	history, err := svc.ListProductPriceHistory(ctx, "SKU-KAHVE-01", 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history row, got %d", len(history))
	}
	h := history[0]
	if h.Reason != domain.PriceChangeManual || h.ChangedBy != "admin" || h.AppliedPercent.Valid {
		t.Fatalf("unexpected history row %+v", h)
	}
	if !h.OldSalePrice.Equal(dec("64.90")) || !h.NewPurchasePrice.Equal(dec("40")) {
		t.Fatalf("unexpected history amounts %+v", h)
	}

	logs, err := svc.ListAuditLogs(ctx, "", "", 20)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	fields := map[string]bool{}
	for _, entry := range logs {
		if entry.Action == "product_update" {
			fields[strings.SplitN(entry.Detail, ",", 2)[0]] = true
		}
	}
	for _, want := range []string{"field=name", "field=purchase_price", "field=sale_price"} {
		if !fields[want] {
			t.Fatalf("expected audit row for %s, got %v", want, fields)
		}
	}
	if len(fields) != 3 {
		t.Fatalf("expected exactly three field audit rows, got %v", fields)
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.UpdateProduct(adminContext(), "SKU-NOPE", domain.ProductUpdateRequest{Name: ptr("x")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSimulateRepricingServesSearchFromLastResult(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()

	first, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("10")})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if first.Cached || first.Total != 12 || len(first.Items) != 12 {
		t.Fatalf("expected fresh simulation over 12 items, got cached=%v total=%d items=%d", first.Cached, first.Total, len(first.Items))
	}
	if first.Flagged != 1 {
		t.Fatalf("expected zero-cost bag to be flagged, got %d", first.Flagged)
	}

	search, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("10.0"), Query: "cay", Limit: 5})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !search.Cached {
		t.Fatalf("expected search to reuse the computed simulation")
	}
	if search.Matched != 1 || search.Items[0].ItemID != "SKU-CAY-01" {
		t.Fatalf("expected one tea match, got %+v", search.Items)
	}
	tea := search.Items[0]
	if !tea.NewCost.Equal(dec("101.75")) || !tea.SuggestedSalePrice.Equal(dec("165")) {
		t.Fatalf("unexpected tea projection %+v", tea)
	}
}

func TestSimulateRepricingRejectsInvalidParameters(t *testing.T) {
	svc := newTestService()
	_, err := svc.SimulateRepricing(staffContext(), domain.RepricingSimulateRequest{TargetMarginPercent: dec("-1")})
	if !errors.Is(err, pricing.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestApplyRepricingCommitsHistoryAndAudit(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	sim, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("10")})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	resp, err := svc.ApplyRepricing(ctx, domain.RepricingApplyRequest{
		CostIncreasePercent: dec("10"),
		ExpectedRevision:    sim.Revision,
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.Applied != 11 || resp.Skipped != 1 || resp.Failed != 0 || resp.Stale != 0 {
		t.Fatalf("unexpected counts applied=%d skipped=%d failed=%d stale=%d", resp.Applied, resp.Skipped, resp.Failed, resp.Stale)
	}

	product, err := svc.repo.GetProductBySKU(ctx, "SKU-CAY-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !product.PurchasePrice.Equal(dec("101.75")) || !product.SalePrice.Equal(dec("165")) {
		t.Fatalf("expected committed prices, got cost=%s price=%s", product.PurchasePrice, product.SalePrice)
	}

	history, err := svc.ListProductPriceHistory(ctx, "SKU-CAY-01", 5)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 || history[0].Reason != domain.PriceChangeBulkRepricing || !history[0].AppliedPercent.Decimal.Equal(dec("10")) {
		t.Fatalf("expected bulk repricing history row, got %+v", history)
	}

	logs, err := svc.ListAuditLogs(ctx, "", "", 500)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	reprices := 0
	for _, entry := range logs {
		if entry.Action == "product_reprice" {
			reprices++
			if !strings.Contains(entry.Detail, "cost_increase_percent=10") {
				t.Fatalf("expected parameters in audit detail, got %s", entry.Detail)
			}
		}
	}
	if reprices != 22 {
		t.Fatalf("expected two audit rows per applied item, got %d", reprices)
	}

	after, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("10")})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if after.Revision == sim.Revision || after.Cached {
		t.Fatalf("expected the commit to move the catalog revision")
	}
}

func TestApplyRepricingRequiresAdmin(t *testing.T) {
	svc := newTestService()
	_, err := svc.ApplyRepricing(staffContext(), domain.RepricingApplyRequest{CostIncreasePercent: dec("5")})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestApplyRepricingRejectsStaleRevision(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	sim, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("5")})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if _, err := svc.UpdateProduct(ctx, "SKU-SU-01", domain.ProductUpdateRequest{SalePrice: ptr(dec("13"))}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	_, err = svc.ApplyRepricing(ctx, domain.RepricingApplyRequest{
		CostIncreasePercent: dec("5"),
		ExpectedRevision:    sim.Revision,
	})
	if !errors.Is(err, store.ErrStaleCatalog) {
		t.Fatalf("expected ErrStaleCatalog, got %v", err)
	}
}

func TestApplyRepricingSubset(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	resp, err := svc.ApplyRepricing(ctx, domain.RepricingApplyRequest{
		CostIncreasePercent: dec("20"),
		TargetMarginPercent: dec("30"),
		SKUs:                []string{"sku-seker-01", "SKU-POSET-01", "SKU-GHOST"},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(resp.Statuses) != 3 {
		t.Fatalf("expected three statuses, got %+v", resp.Statuses)
	}
	got := map[string]string{}
	for _, st := range resp.Statuses {
		got[st.SKU] = st.Status
	}
	if got["SKU-SEKER-01"] != domain.ApplyStatusApplied || got["SKU-POSET-01"] != domain.ApplyStatusApplied || got["SKU-GHOST"] != domain.ApplyStatusFailed {
		t.Fatalf("unexpected statuses %v", got)
	}

	untouched, err := svc.repo.GetProductBySKU(ctx, "SKU-CAY-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !untouched.PurchasePrice.Equal(dec("92.50")) {
		t.Fatalf("expected unselected product to stay unchanged, got %s", untouched.PurchasePrice)
	}
}

type faultyRepo struct {
	store.Repository
	failSKU  string
	raceSKU  string
	raceWith func(ctx context.Context)
}

func (r *faultyRepo) RepriceProduct(ctx context.Context, change store.PriceChange) (*domain.Product, error) {
	if change.SKU == r.failSKU {
		return nil, errors.New("connection reset")
	}
	if change.SKU == r.raceSKU && r.raceWith != nil {
		r.raceWith(ctx)
	}
	return r.Repository.RepriceProduct(ctx, change)
}

func TestApplyRepricingIsolatesItemFailures(t *testing.T) {
	base := memory.NewSeeded(zerolog.Nop())
	repo := &faultyRepo{Repository: base, failSKU: "SKU-PIRINC-01", raceSKU: "SKU-ZEYTIN-01"}
	repo.raceWith = func(ctx context.Context) {
		p, _ := base.GetProductBySKU(ctx, "SKU-ZEYTIN-01")
		p.SalePrice = dec("104.90")
		if _, err := base.UpdateProduct(ctx, *p); err != nil {
			t.Fatalf("concurrent edit failed: %v", err)
		}
	}
	svc := newTestServiceWithRepo(repo)
	ctx := adminContext()

	resp, err := svc.ApplyRepricing(ctx, domain.RepricingApplyRequest{CostIncreasePercent: dec("10")})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.Failed != 1 || resp.Stale != 1 || resp.Applied != 9 || resp.Skipped != 1 {
		t.Fatalf("unexpected counts applied=%d skipped=%d failed=%d stale=%d", resp.Applied, resp.Skipped, resp.Failed, resp.Stale)
	}

	for _, st := range resp.Statuses {
		switch st.SKU {
		case "SKU-PIRINC-01":
			if st.Status != domain.ApplyStatusFailed || st.Reason != "write failed" {
				t.Fatalf("expected failed status for rice, got %+v", st)
			}
		case "SKU-ZEYTIN-01":
			if st.Status != domain.ApplyStatusStale {
				t.Fatalf("expected stale status for olives, got %+v", st)
			}
		}
	}

	olives, _ := base.GetProductBySKU(ctx, "SKU-ZEYTIN-01")
	if !olives.SalePrice.Equal(dec("104.90")) || !olives.PurchasePrice.Equal(dec("64")) {
		t.Fatalf("expected concurrent edit to survive, got cost=%s price=%s", olives.PurchasePrice, olives.SalePrice)
	}
	detergent, _ := base.GetProductBySKU(ctx, "SKU-DETERJAN-01")
	if !detergent.PurchasePrice.Equal(dec("156.2")) {
		t.Fatalf("expected later items to be applied after a failure, got %s", detergent.PurchasePrice)
	}
	history, _ := base.ListPriceHistory(ctx, "SKU-PIRINC-01", 5)
	if len(history) != 0 {
		t.Fatalf("expected no history for failed item")
	}
}

func TestCalculateProfitReportsMarkup(t *testing.T) {
	svc := newTestService()

	resp, err := svc.CalculateProfit(domain.ProfitRequest{Cost: dec("80"), SalePrice: dec("100")})
	if err != nil {
		t.Fatalf("calculate profit failed: %v", err)
	}
	if !resp.ProfitPercent.Equal(dec("20")) || !resp.MarkupPercent.Valid || !resp.MarkupPercent.Decimal.Equal(dec("25")) {
		t.Fatalf("unexpected profit response %+v", resp)
	}

	resp, err = svc.CalculateProfit(domain.ProfitRequest{Cost: decimal.Zero, SalePrice: dec("10")})
	if err != nil {
		t.Fatalf("calculate profit failed: %v", err)
	}
	if resp.MarkupPercent.Valid {
		t.Fatalf("expected undefined markup for zero cost")
	}
}

func TestCalculateDesiWithBillableWeight(t *testing.T) {
	svc := newTestService()

	resp, err := svc.CalculateDesi(domain.DesiRequest{
		PackageDimensions: pricing.PackageDimensions{WidthCm: dec("30"), HeightCm: dec("20"), LengthCm: dec("10")},
		ActualWeightKg:    ptr(dec("3.4")),
	})
	if err != nil {
		t.Fatalf("desi failed: %v", err)
	}
	if !resp.Desi.Equal(dec("2")) || !resp.BillableWeight.Decimal.Equal(dec("3.4")) {
		t.Fatalf("unexpected desi response %+v", resp)
	}
}

func TestListAuditLogsRejectsBadDate(t *testing.T) {
	svc := newTestService()
	if _, err := svc.ListAuditLogs(adminContext(), "", "18-10-2026", 10); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// movingRepo edits a product right after each of the first moves catalog
// reads, so the loaded rows belong to an older revision.
type movingRepo struct {
	store.Repository
	t     *testing.T
	moves int
	reads int
}

func (r *movingRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	items, err := r.Repository.ListProducts(ctx)
	if err != nil || r.reads >= r.moves {
		return items, err
	}
	r.reads++
	p, _ := r.Repository.GetProductBySKU(ctx, "SKU-CAY-01")
	p.SalePrice = p.SalePrice.Add(dec("1"))
	if _, err := r.Repository.UpdateProduct(ctx, *p); err != nil {
		r.t.Fatalf("concurrent edit failed: %v", err)
	}
	return items, nil
}

func TestSimulateReloadsWhenCatalogMovesDuringLoad(t *testing.T) {
	repo := &movingRepo{Repository: memory.NewSeeded(zerolog.Nop()), t: t, moves: 1}
	svc := newTestServiceWithRepo(repo)
	ctx := adminContext()

	resp, err := svc.SimulateRepricing(ctx, domain.RepricingSimulateRequest{CostIncreasePercent: dec("10"), Limit: 50})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	revision, _ := repo.CatalogRevision(ctx)
	if resp.Revision != revision {
		t.Fatalf("expected result tagged with %s, got %s", revision, resp.Revision)
	}
	for _, p := range resp.View.Items {
		if p.ItemID == "SKU-CAY-01" && !p.OldSalePrice.Equal(dec("150.90")) {
			t.Fatalf("expected projection from the edited row, got old price %s", p.OldSalePrice)
		}
	}
}

func TestSimulateGivesUpWhenCatalogKeepsMoving(t *testing.T) {
	repo := &movingRepo{Repository: memory.NewSeeded(zerolog.Nop()), t: t, moves: 100}
	svc := newTestServiceWithRepo(repo)

	_, err := svc.SimulateRepricing(adminContext(), domain.RepricingSimulateRequest{CostIncreasePercent: dec("10")})
	if !errors.Is(err, store.ErrStaleCatalog) {
		t.Fatalf("expected ErrStaleCatalog, got %v", err)
	}
	if repo.reads != snapshotAttempts {
		t.Fatalf("expected %d loads, got %d", snapshotAttempts, repo.reads)
	}
}

func TestApplyRepricingStoresCentCosts(t *testing.T) {
	base := memory.NewSeeded(zerolog.Nop())
	svc := newTestServiceWithRepo(base)
	ctx := adminContext()

	resp, err := svc.ApplyRepricing(ctx, domain.RepricingApplyRequest{
		CostIncreasePercent: dec("7.3"),
		TargetMarginPercent: dec("30"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.Failed != 0 || resp.Stale != 0 || resp.Applied == 0 {
		t.Fatalf("unexpected counts applied=%d failed=%d stale=%d", resp.Applied, resp.Failed, resp.Stale)
	}
	for _, st := range resp.Statuses {
		if st.Status != domain.ApplyStatusApplied {
			continue
		}
		if !st.NewCost.Equal(st.NewCost.Round(2)) {
			t.Fatalf("expected cent cost for %s, got %s", st.SKU, st.NewCost)
		}
		saved, _ := base.GetProductBySKU(ctx, st.SKU)
		if !saved.PurchasePrice.Equal(st.NewCost) || !saved.SalePrice.Equal(st.NewSalePrice) {
			t.Fatalf("expected %s stored as %s/%s, got %s/%s", st.SKU, st.NewCost, st.NewSalePrice, saved.PurchasePrice, saved.SalePrice)
		}
	}

	// 11.75 * 1.073 = 12.60775
	pasta, _ := base.GetProductBySKU(ctx, "SKU-MAKARNA-01")
	if !pasta.PurchasePrice.Equal(dec("12.61")) {
		t.Fatalf("expected pasta cost 12.61, got %s", pasta.PurchasePrice)
	}
}
