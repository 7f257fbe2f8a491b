package service

import (
	"github.com/shopspring/decimal"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/pricing"
)

// The calculators are stateless; they take no context and touch no store.

func (s *Service) CalculateProfit(req domain.ProfitRequest) (domain.ProfitResponse, error) {
	margin, err := pricing.ComputeProfit(req.Cost, req.SalePrice)
	if err != nil {
		return domain.ProfitResponse{}, err
	}

	resp := domain.ProfitResponse{MarginResult: margin}
	if markup, err := pricing.MarkupPercent(req.Cost, req.SalePrice); err == nil {
		resp.MarkupPercent = decimal.NewNullDecimal(markup)
	}
	return resp, nil
}

func (s *Service) SuggestPrice(req domain.SuggestPriceRequest) (pricing.PriceQuote, error) {
	return pricing.QuoteSalePrice(req.Cost, req.DesiredMarginPercent, req.VATRatePercent)
}

func (s *Service) CalculateProfitability(req pricing.ProfitabilityInput) (pricing.ProfitabilityResult, error) {
	return pricing.CalculateProfitability(req)
}

func (s *Service) CalculateDesi(req domain.DesiRequest) (domain.DesiResponse, error) {
	desi, err := pricing.Desi(req.PackageDimensions)
	if err != nil {
		return domain.DesiResponse{}, err
	}

	resp := domain.DesiResponse{Desi: desi}
	if req.ActualWeightKg != nil {
		billable, err := pricing.BillableWeight(req.PackageDimensions, *req.ActualWeightKg)
		if err != nil {
			return domain.DesiResponse{}, err
		}
		resp.BillableWeight = decimal.NewNullDecimal(billable)
	}
	return resp, nil
}
