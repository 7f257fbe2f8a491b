package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/pricing"
	"hesapla/backend/internal/repricing"
	"hesapla/backend/internal/store"
)

// SimulateRepricing projects the current catalog under the given parameters
// and returns one filtered page. It never writes.
func (s *Service) SimulateRepricing(ctx context.Context, req domain.RepricingSimulateRequest) (domain.RepricingSimulateResponse, error) {
	res, err := s.project(ctx, req.Parameters())
	if err != nil {
		return domain.RepricingSimulateResponse{}, err
	}

	return domain.RepricingSimulateResponse{
		Revision:   res.Revision,
		Parameters: res.Simulation.Parameters,
		Cached:     res.Cached,
		View:       res.Simulation.View(req.Query, req.Limit),
	}, nil
}

// ApplyRepricing commits the simulation's changes item by item. Each product
// is written on its own with a compare-and-set on the simulated old values;
// one item failing never stops or rolls back the others.
func (s *Service) ApplyRepricing(ctx context.Context, req domain.RepricingApplyRequest) (domain.RepricingApplyResponse, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.RepricingApplyResponse{}, err
	}

	params := req.Parameters()
	res, err := s.project(ctx, params)
	if err != nil {
		return domain.RepricingApplyResponse{}, err
	}
	if req.ExpectedRevision != "" && req.ExpectedRevision != res.Revision {
		return domain.RepricingApplyResponse{}, fmt.Errorf("%w: simulated at %s, catalog is at %s", store.ErrStaleCatalog, req.ExpectedRevision, res.Revision)
	}

	selected := make(map[string]bool, len(req.SKUs))
	for _, sku := range req.SKUs {
		if sku = normalizeSKU(sku); sku != "" {
			selected[sku] = false
		}
	}

	resp := domain.RepricingApplyResponse{
		Revision:   res.Revision,
		Parameters: res.Simulation.Parameters,
		Statuses:   make([]domain.RepricingApplyStatus, 0, len(res.Simulation.Projections)),
	}
	appliedAt := time.Now().UTC()
	for _, p := range res.Simulation.Projections {
		if len(selected) > 0 {
			if _, ok := selected[p.ItemID]; !ok {
				continue
			}
			selected[p.ItemID] = true
		}

		// Stored prices carry cents; the projection cost is exact.
		p.NewCost = pricing.RoundDisplay(p.NewCost)
		status := domain.RepricingApplyStatus{
			SKU:          p.ItemID,
			OldCost:      p.OldCost,
			NewCost:      p.NewCost,
			OldSalePrice: p.OldSalePrice,
			NewSalePrice: p.SuggestedSalePrice,
		}
		switch {
		case p.Flag != pricing.FlagNone:
			status.Status = domain.ApplyStatusSkipped
			status.Reason = string(p.Flag)
		case !p.Changed():
			status.Status = domain.ApplyStatusSkipped
			status.Reason = "unchanged"
		default:
			status.Status, status.Reason = s.applyProjection(ctx, actor, p, params, appliedAt)
		}
		resp.Statuses = append(resp.Statuses, status)
	}

	missing := make([]string, 0)
	for sku, seen := range selected {
		if !seen {
			missing = append(missing, sku)
		}
	}
	slices.Sort(missing)
	for _, sku := range missing {
		resp.Statuses = append(resp.Statuses, domain.RepricingApplyStatus{
			SKU:    sku,
			Status: domain.ApplyStatusFailed,
			Reason: "not in catalog",
		})
	}

	for _, st := range resp.Statuses {
		switch st.Status {
		case domain.ApplyStatusApplied:
			resp.Applied++
		case domain.ApplyStatusSkipped:
			resp.Skipped++
		case domain.ApplyStatusStale:
			resp.Stale++
		default:
			resp.Failed++
		}
	}

	s.logger.Info().
		Str("actor", actor.Username).
		Str("revision", res.Revision).
		Str("params", params.Key()).
		Int("applied", resp.Applied).
		Int("skipped", resp.Skipped).
		Int("stale", resp.Stale).
		Int("failed", resp.Failed).
		Msg("bulk repricing applied")
	return resp, nil
}

func (s *Service) applyProjection(
	ctx context.Context,
	actor domain.Actor,
	p pricing.Projection,
	params pricing.SimulationParameters,
	at time.Time,
) (string, string) {
	saved, err := s.repo.RepriceProduct(ctx, store.PriceChange{
		SKU:              p.ItemID,
		OldPurchasePrice: p.OldCost,
		OldSalePrice:     p.OldSalePrice,
		NewPurchasePrice: p.NewCost,
		NewSalePrice:     p.SuggestedSalePrice,
		At:               at,
	})
	switch {
	case errors.Is(err, store.ErrStaleProduct):
		return domain.ApplyStatusStale, "changed since simulation"
	case errors.Is(err, store.ErrNotFound):
		return domain.ApplyStatusFailed, "not found"
	case err != nil:
		s.logger.Warn().Err(err).Str("sku", p.ItemID).Msg("reprice write failed")
		return domain.ApplyStatusFailed, "write failed"
	}

	s.recordPriceHistory(ctx, domain.ProductPriceHistory{
		SKU:              saved.SKU,
		OldPurchasePrice: p.OldCost,
		NewPurchasePrice: saved.PurchasePrice,
		OldSalePrice:     p.OldSalePrice,
		NewSalePrice:     saved.SalePrice,
		AppliedPercent:   decimal.NewNullDecimal(params.CostIncreasePercent),
		Reason:           domain.PriceChangeBulkRepricing,
		ChangedBy:        actor.Username,
		ChangedAt:        at,
	})

	extra := fmt.Sprintf("cost_increase_percent=%s,target_margin_percent=%s,effective_margin_percent=%s",
		params.CostIncreasePercent, params.TargetMarginPercent, p.EffectiveTargetMarginPercent)
	before := domain.Product{PurchasePrice: p.OldCost, SalePrice: p.OldSalePrice}
	after := domain.Product{PurchasePrice: saved.PurchasePrice, SalePrice: saved.SalePrice}
	for _, change := range changedFields(before, after) {
		change.extra = extra
		s.logAudit(ctx, s.defaultStoreID, "product_reprice", "product", saved.SKU, change.detail())
	}

	return domain.ApplyStatusApplied, ""
}

const snapshotAttempts = 3

var errCatalogMoved = fmt.Errorf("%w: catalog changed while loading", store.ErrStaleCatalog)

// project computes the simulation for the current revision. A catalog that
// moves while it is being loaded is retried so the result always matches the
// revision it is tagged with.
func (s *Service) project(ctx context.Context, params pricing.SimulationParameters) (repricing.Result, error) {
	var err error
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		var revision string
		revision, err = s.repo.CatalogRevision(ctx)
		if err != nil {
			return repricing.Result{}, err
		}
		var res repricing.Result
		res, err = s.projections.Project(ctx, revision, s.snapshotLoader(revision), params)
		if !errors.Is(err, errCatalogMoved) {
			return res, err
		}
		s.logger.Debug().Str("revision", revision).Int("attempt", attempt+1).Msg("catalog moved during load")
	}
	return repricing.Result{}, err
}

// snapshotLoader loads the catalog and fails when the revision no longer
// matches the one the load started from.
func (s *Service) snapshotLoader(revision string) repricing.CatalogLoader {
	return func(ctx context.Context) ([]pricing.CatalogItem, error) {
		items, err := s.loadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		after, err := s.repo.CatalogRevision(ctx)
		if err != nil {
			return nil, err
		}
		if after != revision {
			return nil, errCatalogMoved
		}
		return items, nil
	}
}
