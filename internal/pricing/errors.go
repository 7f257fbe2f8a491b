package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput reports a negative amount, rate or dimension.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMarginOutOfRange reports a margin of 100% or more, where the
	// cost to price inversion has no finite answer.
	ErrMarginOutOfRange = errors.New("margin out of range")
	// ErrUndefinedRatio reports a ratio whose denominator is zero.
	ErrUndefinedRatio = errors.New("undefined ratio")
)

type named struct {
	name  string
	value decimal.Decimal
}

func requireNonNegative(values ...named) error {
	for _, v := range values {
		if v.value.IsNegative() {
			return fmt.Errorf("%w: %s must be >= 0, got %s", ErrInvalidInput, v.name, v.value.String())
		}
	}
	return nil
}

func requireMarginBelowHundred(marginPercent decimal.Decimal) error {
	if marginPercent.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: margin %s%% must be below 100%%", ErrMarginOutOfRange, marginPercent.String())
	}
	return nil
}
