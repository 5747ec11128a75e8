package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Category identifies which formula of a FormulaSet priced a product.
type Category string

const (
	CategoryWine         Category = "wine"
	CategorySpirits      Category = "spirits"
	CategoryNonAlcoholic Category = "nonAlcoholic"
)

const (
	DefaultMarginDivisor = 0.65
	DefaultSRPMultiplier = 1.47
	DefaultBottleSizeML  = 750.0
	DefaultPackSize      = 12
)

var (
	spiritsPattern      = regexp.MustCompile(`\b(spirits?|liquors?|vodka|whiske?y|bourbon|rum|gin|tequila|mezcal|brandy|cognac|amaro|vermouth)\b`)
	nonAlcoholicPattern = regexp.MustCompile(`\b(non[- ]?alc(oholic)?|na|juice|soda|water|tea|coffee)\b`)
	nonNumeric          = regexp.MustCompile(`[^0-9.]`)
	leadingInt          = regexp.MustCompile(`^[+-]?\d+`)
)

// Formula holds the per-category cost and margin constants.
type Formula struct {
	TaxPerLiter     float64 `json:"taxPerLiter" yaml:"taxPerLiter"`
	TaxFixed        float64 `json:"taxFixed" yaml:"taxFixed"`
	ShippingPerCase float64 `json:"shippingPerCase" yaml:"shippingPerCase"`
	MarginDivisor   float64 `json:"marginDivisor" yaml:"marginDivisor"`
	SRPMultiplier   float64 `json:"srpMultiplier" yaml:"srpMultiplier"`
}

// FormulaSet is the category keyed configuration passed into Calculate.
type FormulaSet map[Category]Formula

// DefaultFormulas returns the built-in formula set.
func DefaultFormulas() FormulaSet {
	return FormulaSet{
		CategoryWine:         {TaxPerLiter: 0.32, TaxFixed: 0.15, ShippingPerCase: 13, MarginDivisor: 0.65, SRPMultiplier: 1.47},
		CategorySpirits:      {TaxPerLiter: 1.17, TaxFixed: 0.15, ShippingPerCase: 13, MarginDivisor: 0.65, SRPMultiplier: 1.47},
		CategoryNonAlcoholic: {TaxPerLiter: 0, TaxFixed: 0, ShippingPerCase: 13, MarginDivisor: 0.65, SRPMultiplier: 1.47},
	}
}

// Merge returns a copy of s with every entry of overrides applied on top.
func (s FormulaSet) Merge(overrides FormulaSet) FormulaSet {
	out := make(FormulaSet, len(s)+len(overrides))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Lookup returns the formula for category, falling back to wine and then to
// the zero formula.
func (s FormulaSet) Lookup(category Category) (Category, Formula) {
	if f, ok := s[category]; ok {
		return category, f
	}
	if f, ok := s[CategoryWine]; ok {
		return CategoryWine, f
	}
	return CategoryWine, Formula{}
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryWine, CategorySpirits, CategoryNonAlcoholic:
		return true
	}
	return false
}

// Input is the subset of a catalog product that pricing depends on.
type Input struct {
	ProductType  string
	ProductName  string
	BottleSize   string
	PackSize     string
	FOBCasePrice float64
}

// Breakdown is the full derivation for one product.
type Breakdown struct {
	FrontlineBottle float64  `json:"frontlineBottle"`
	FrontlineCase   float64  `json:"frontlineCase"`
	SRP             float64  `json:"srp"`
	WholesaleBottle float64  `json:"wholesaleBottle"`
	WholesaleCase   float64  `json:"wholesaleCase"`
	LandedCase      float64  `json:"landedCase"`
	CategoryUsed    Category `json:"categoryUsed"`
	Formula         Formula  `json:"formula"`
}

// Snapshot is the two decimal rendering stored on special orders.
type Snapshot struct {
	FrontlinePrice string `json:"frontlinePrice"`
	FrontlineCase  string `json:"frontlineCase"`
	SRP            string `json:"srp"`
	WhlsBottle     string `json:"whlsBottle"`
	WhlsCase       string `json:"whlsCase"`
	LaidIn         string `json:"laidIn"`
	FormulaUsed    string `json:"formulaUsed"`
}

// DetectCategory classifies a product from its type and name. Spirits
// keywords win over non-alcoholic ones; anything else is wine.
func DetectCategory(productType, productName string) Category {
	text := strings.ToLower(productType + " " + productName)
	if spiritsPattern.MatchString(text) {
		return CategorySpirits
	}
	if nonAlcoholicPattern.MatchString(text) {
		return CategoryNonAlcoholic
	}
	return CategoryWine
}

// Calculate selects the category for in and prices it with the matching
// formula from set.
func Calculate(in Input, set FormulaSet) Breakdown {
	category, formula := set.Lookup(DetectCategory(in.ProductType, in.ProductName))
	return CalculateWith(in, category, formula)
}

// CalculateWith prices in with an explicit formula. It is used to re-verify
// snapshots taken with a formula that may since have changed.
func CalculateWith(in Input, category Category, f Formula) Breakdown {
	bottleML := ParseBottleSize(in.BottleSize)
	pack := float64(ParsePackSize(in.PackSize))

	divisor := f.MarginDivisor
	if divisor == 0 {
		divisor = DefaultMarginDivisor
	}
	multiplier := f.SRPMultiplier
	if multiplier == 0 {
		multiplier = DefaultSRPMultiplier
	}

	caseLiters := pack * bottleML / 1000
	tax := caseLiters*f.TaxPerLiter + f.TaxFixed
	landed := in.FOBCasePrice + f.ShippingPerCase + tax
	wholesaleCase := landed / divisor
	wholesaleBottle := wholesaleCase / pack
	srp := math.Ceil(wholesaleBottle*multiplier) - 0.01
	frontline := srp / multiplier

	return Breakdown{
		FrontlineBottle: frontline,
		FrontlineCase:   frontline * pack,
		SRP:             srp,
		WholesaleBottle: wholesaleBottle,
		WholesaleCase:   wholesaleCase,
		LandedCase:      landed,
		CategoryUsed:    category,
		Formula:         f,
	}
}

// Snapshot renders b the way it is persisted on an order.
func (b Breakdown) Snapshot() Snapshot {
	return Snapshot{
		FrontlinePrice: fixed2(b.FrontlineBottle),
		FrontlineCase:  fixed2(b.FrontlineCase),
		SRP:            fixed2(b.SRP),
		WhlsBottle:     fixed2(b.WholesaleBottle),
		WhlsCase:       fixed2(b.WholesaleCase),
		LaidIn:         fixed2(b.LandedCase),
		FormulaUsed:    string(b.CategoryUsed),
	}
}

// fixed2 rounds the exact binary value of v to two places, half away from
// zero, so 1.005 renders as "1.00".
func fixed2(v float64) string {
	exact, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 1074, 64))
	if err != nil {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return exact.StringFixed(2)
}

// ParseBottleSize extracts the millilitre figure from values like "750ml".
// Blank, zero or unparsable values give DefaultBottleSizeML.
func ParseBottleSize(raw string) float64 {
	v, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(raw, ""), 64)
	if err != nil || v <= 0 {
		return DefaultBottleSizeML
	}
	return v
}

// ParsePackSize reads the leading integer of raw. Values that do not start
// with a positive integer give DefaultPackSize.
func ParsePackSize(raw string) int {
	m := leadingInt.FindString(strings.TrimSpace(raw))
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultPackSize
	}
	return n
}
