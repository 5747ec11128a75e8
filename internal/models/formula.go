package models

import (
	"time"

	"catalog-service/internal/pricing"
)

// PricingFormula is the stored override for one pricing category.
type PricingFormula struct {
	Category        string    `json:"category" gorm:"primaryKey"`
	TaxPerLiter     float64   `json:"taxPerLiter"`
	TaxFixed        float64   `json:"taxFixed"`
	ShippingPerCase float64   `json:"shippingPerCase"`
	MarginDivisor   float64   `json:"marginDivisor"`
	SRPMultiplier   float64   `json:"srpMultiplier" gorm:"column:srp_multiplier"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName returns the table name for the PricingFormula model
func (PricingFormula) TableName() string {
	return "pricing_formulas"
}

func (f PricingFormula) Formula() pricing.Formula {
	return pricing.Formula{
		TaxPerLiter:     f.TaxPerLiter,
		TaxFixed:        f.TaxFixed,
		ShippingPerCase: f.ShippingPerCase,
		MarginDivisor:   f.MarginDivisor,
		SRPMultiplier:   f.SRPMultiplier,
	}
}

func NewPricingFormula(category pricing.Category, f pricing.Formula) PricingFormula {
	return PricingFormula{
		Category:        string(category),
		TaxPerLiter:     f.TaxPerLiter,
		TaxFixed:        f.TaxFixed,
		ShippingPerCase: f.ShippingPerCase,
		MarginDivisor:   f.MarginDivisor,
		SRPMultiplier:   f.SRPMultiplier,
	}
}

// FormulaToMap renders f for a JSON column.
func FormulaToMap(category pricing.Category, f pricing.Formula) map[string]interface{} {
	return map[string]interface{}{
		"category":        string(category),
		"taxPerLiter":     f.TaxPerLiter,
		"taxFixed":        f.TaxFixed,
		"shippingPerCase": f.ShippingPerCase,
		"marginDivisor":   f.MarginDivisor,
		"srpMultiplier":   f.SRPMultiplier,
	}
}

// FormulaFromMap is the inverse of FormulaToMap. Missing or non-numeric
// entries read as zero.
func FormulaFromMap(m map[string]interface{}) (pricing.Category, pricing.Formula) {
	num := func(key string) float64 {
		switch v := m[key].(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
		return 0
	}
	category, _ := m["category"].(string)
	return pricing.Category(category), pricing.Formula{
		TaxPerLiter:     num("taxPerLiter"),
		TaxFixed:        num("taxFixed"),
		ShippingPerCase: num("shippingPerCase"),
		MarginDivisor:   num("marginDivisor"),
		SRPMultiplier:   num("srpMultiplier"),
	}
}

type UpdateFormulaRequest struct {
	TaxPerLiter     *float64 `json:"taxPerLiter"`
	TaxFixed        *float64 `json:"taxFixed"`
	ShippingPerCase *float64 `json:"shippingPerCase"`
	MarginDivisor   *float64 `json:"marginDivisor"`
	SRPMultiplier   *float64 `json:"srpMultiplier"`
}
