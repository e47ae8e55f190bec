package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNameRequired   = errors.New("catalog: at least one product name is required")
	ErrNegativePrice  = errors.New("catalog: prices must not be negative")
	ErrInvalidPackQty = errors.New("catalog: supply pack quantity must be at least 1")
	ErrNameBlank      = errors.New("catalog: category name is required")
)

func validateNames(urName, enName string) error {
	if strings.TrimSpace(urName) == "" && strings.TrimSpace(enName) == "" {
		return ErrNameRequired
	}
	return nil
}

func validatePricing(basePrice, sellPrice decimal.Decimal) error {
	if basePrice.IsNegative() || sellPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

func validatePackQty(supplyPackQty decimal.Decimal) error {
	if supplyPackQty.LessThan(decimal.NewFromInt(1)) {
		return ErrInvalidPackQty
	}
	return nil
}
