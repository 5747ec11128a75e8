package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"catalog-service/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RowNumberKey is the synthetic cell file parsers add to carry the
// spreadsheet line number of a row.
const RowNumberKey = "_row"

const (
	defaultPackSize    = "12"
	defaultBottleSize  = "750"
	defaultProductType = "wine"
)

var (
	headerJunk   = regexp.MustCompile(`[^a-z0-9]`)
	priceJunk    = regexp.MustCompile(`[^0-9.]`)
	accentFolder = runes.Remove(runes.In(unicode.Mn))
)

// CatalogItem is one normalized import row.
type CatalogItem struct {
	ItemCode     string
	ProductName  string
	Producer     string
	Vintage      string
	PackSize     string
	BottleSize   string
	ProductType  string
	FOBCasePrice float64
	Supplier     string
	Country      string
	Region       string
	Appellation  string
	GrapeVariety string
	ProductLink  string
	ExtendedData map[string]interface{}
}

// MappingInput is a raw spreadsheet as handed over by a parser.
type MappingInput struct {
	Rows []map[string]string
	// Headers in sheet order. When empty the sorted union of row keys is used.
	Headers []string
	// Overrides maps a canonical field to the header it must read from.
	Overrides map[string]string
	// ExtraColumns are headers to keep in extendedData.
	ExtraColumns []string
}

// MappingResult is the mapper output plus its bookkeeping.
type MappingResult struct {
	Items           []CatalogItem
	Mapping         map[string]string
	Dropped         []models.ImportRowError
	MissingRequired []string
}

// ColumnMapper turns arbitrary spreadsheet headers into catalog fields.
type ColumnMapper struct {
	fields []models.ImportField
}

func NewColumnMapper(fields []models.ImportField) *ColumnMapper {
	if len(fields) == 0 {
		fields = models.CatalogImportFields()
	}
	return &ColumnMapper{fields: fields}
}

// NormalizeHeader folds accents, lowercases and strips everything but ASCII
// letters and digits, so "Item Code", "item_code" and "ITEM-CODE" compare equal.
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, accentFolder, norm.NFC), h)
	if err != nil {
		folded = h
	}
	return headerJunk.ReplaceAllString(strings.ToLower(folded), "")
}

// ParsePrice strips currency symbols and separators. Unparsable input is 0.
func ParsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(priceJunk.ReplaceAllString(raw, ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// AutoMap picks, for each canonical field, the first header whose normalized
// form matches one of the field's aliases.
func (m *ColumnMapper) AutoMap(headers []string) map[string]string {
	mapping := make(map[string]string)
	for _, f := range m.fields {
		aliases := make(map[string]struct{}, len(f.Aliases)+1)
		aliases[NormalizeHeader(f.Name)] = struct{}{}
		for _, a := range f.Aliases {
			aliases[NormalizeHeader(a)] = struct{}{}
		}
		for _, h := range headers {
			if _, ok := aliases[NormalizeHeader(h)]; ok {
				mapping[f.Name] = h
				break
			}
		}
	}
	return mapping
}

// Map normalizes in. Rows without an item code or product name are dropped
// and reported, never rejected as a whole.
func (m *ColumnMapper) Map(in MappingInput) (*MappingResult, error) {
	headers := in.Headers
	if len(headers) == 0 {
		headers = collectHeaders(in.Rows)
	}

	mapping := m.AutoMap(headers)
	for field, header := range in.Overrides {
		if !m.knownField(field) {
			return nil, validationError("unknown mapping field %q", field)
		}
		if strings.TrimSpace(header) == "" {
			delete(mapping, field)
			continue
		}
		mapping[field] = header
	}

	result := &MappingResult{
		Items:   make([]CatalogItem, 0, len(in.Rows)),
		Mapping: mapping,
		Dropped: make([]models.ImportRowError, 0),
	}
	for _, f := range m.fields {
		if _, ok := mapping[f.Name]; f.Required && !ok {
			result.MissingRequired = append(result.MissingRequired, f.Name)
		}
	}

	consumed := make(map[string]struct{}, len(mapping))
	for _, h := range mapping {
		consumed[h] = struct{}{}
	}
	var extras []string
	for _, h := range in.ExtraColumns {
		if _, ok := consumed[h]; !ok && h != RowNumberKey {
			extras = append(extras, h)
		}
	}

	for i, row := range in.Rows {
		rowNum := i + 1
		if n, err := strconv.Atoi(row[RowNumberKey]); err == nil {
			rowNum = n
		}

		get := func(field string) string {
			h, ok := mapping[field]
			if !ok {
				return ""
			}
			return strings.TrimSpace(row[h])
		}

		item := CatalogItem{
			ItemCode:     get(models.FieldItemCode),
			ProductName:  get(models.FieldProductName),
			Producer:     get(models.FieldProducer),
			Vintage:      get(models.FieldVintage),
			PackSize:     get(models.FieldPackSize),
			BottleSize:   get(models.FieldBottleSize),
			ProductType:  get(models.FieldProductType),
			FOBCasePrice: ParsePrice(get(models.FieldFOBCasePrice)),
			Supplier:     get(models.FieldSupplier),
			Country:      get(models.FieldCountry),
			Region:       get(models.FieldRegion),
			Appellation:  get(models.FieldAppellation),
			GrapeVariety: get(models.FieldGrapeVariety),
			ProductLink:  get(models.FieldProductLink),
		}

		if item.ItemCode == "" {
			result.Dropped = append(result.Dropped, models.ImportRowError{Row: rowNum, Column: models.FieldItemCode, Code: "REQUIRED", Message: "item code is required"})
			continue
		}
		if item.ProductName == "" {
			result.Dropped = append(result.Dropped, models.ImportRowError{Row: rowNum, Column: models.FieldProductName, Code: "REQUIRED", Message: "product name is required"})
			continue
		}

		if item.PackSize == "" {
			item.PackSize = defaultPackSize
		}
		if item.BottleSize == "" {
			item.BottleSize = defaultBottleSize
		}
		if item.ProductType == "" {
			item.ProductType = defaultProductType
		}

		for _, h := range extras {
			if v := strings.TrimSpace(row[h]); v != "" {
				if item.ExtendedData == nil {
					item.ExtendedData = make(map[string]interface{})
				}
				item.ExtendedData[h] = v
			}
		}

		result.Items = append(result.Items, item)
	}

	return result, nil
}

func (m *ColumnMapper) knownField(name string) bool {
	for _, f := range m.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func collectHeaders(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	var headers []string
	for _, row := range rows {
		for h := range row {
			if h == RowNumberKey {
				continue
			}
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				headers = append(headers, h)
			}
		}
	}
	sort.Strings(headers)
	return headers
}
