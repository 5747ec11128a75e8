package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// Canonical catalog fields produced by the column mapper.
const (
	FieldItemCode     = "itemCode"
	FieldProductName  = "productName"
	FieldProducer     = "producer"
	FieldVintage      = "vintage"
	FieldBottleSize   = "bottleSize"
	FieldPackSize     = "packSize"
	FieldFOBCasePrice = "fobCasePrice"
	FieldSupplier     = "supplier"
	FieldProductType  = "productType"
	FieldCountry      = "country"
	FieldRegion       = "region"
	FieldAppellation  = "appellation"
	FieldGrapeVariety = "grapeVariety"
	FieldProductLink  = "productLink"
)

// ImportField is a canonical field and the spreadsheet headers that map to it.
type ImportField struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Required    bool     `json:"required"`
	Type        string   `json:"type"` // string, number
	Description string   `json:"description"`
	Example     string   `json:"example"`
}

// CatalogImportFields returns the field table used for auto-mapping.
func CatalogImportFields() []ImportField {
	return []ImportField{
		{Name: FieldItemCode, Aliases: []string{"Item Code", "ItemCode", "Code", "SKU", "Item"}, Required: true, Type: "string", Description: "Supplier item code", Example: "BRL-2019-750"},
		{Name: FieldProductName, Aliases: []string{"Product Name", "ProductName", "Name", "Description", "Title"}, Required: true, Type: "string", Description: "Product name", Example: "Barolo DOCG"},
		{Name: FieldProducer, Aliases: []string{"Producer", "Brand"}, Type: "string", Description: "Producer or brand", Example: "G.D. Vajra"},
		{Name: FieldVintage, Aliases: []string{"Vintage", "Year"}, Type: "string", Description: "Vintage year", Example: "2019"},
		{Name: FieldBottleSize, Aliases: []string{"Bottle Size", "Size", "Bottle"}, Type: "string", Description: "Bottle size, defaults to 750", Example: "750ml"},
		{Name: FieldPackSize, Aliases: []string{"Pack Size", "Pack", "Case Size"}, Type: "string", Description: "Bottles per case, defaults to 12", Example: "12"},
		{Name: FieldFOBCasePrice, Aliases: []string{"FOB Case", "FobCase", "FOB Case Price", "Price", "Cost", "Case Price"}, Type: "number", Description: "FOB price per case", Example: "180.00"},
		{Name: FieldSupplier, Aliases: []string{"Supplier", "Vendor"}, Type: "string", Description: "Ignored on import; the request supplier wins", Example: ""},
		{Name: FieldProductType, Aliases: []string{"Type", "Product Type", "Category"}, Type: "string", Description: "wine, spirits or non-alcoholic; defaults to wine", Example: "Red"},
		{Name: FieldCountry, Aliases: []string{"Country"}, Type: "string", Description: "Country of origin", Example: "Italy"},
		{Name: FieldRegion, Aliases: []string{"Region"}, Type: "string", Description: "Region", Example: "Piedmont"},
		{Name: FieldAppellation, Aliases: []string{"Appellation"}, Type: "string", Description: "Appellation", Example: "Barolo"},
		{Name: FieldGrapeVariety, Aliases: []string{"Grape Variety", "Grape", "Varietal"}, Type: "string", Description: "Grape variety", Example: "Nebbiolo"},
		{Name: FieldProductLink, Aliases: []string{"Product Link", "Link", "URL"}, Type: "string", Description: "Link to tech sheet", Example: ""},
	}
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// CatalogImportTemplate renders the field table as a downloadable template,
// using each field's first alias as the header.
func CatalogImportTemplate() ImportTemplate {
	fields := CatalogImportFields()
	cols := make([]ImportTemplateColumn, 0, len(fields))
	for _, f := range fields {
		if f.Name == FieldSupplier {
			continue
		}
		cols = append(cols, ImportTemplateColumn{
			Name:        f.Aliases[0],
			Description: f.Description,
			Required:    f.Required,
			Type:        f.Type,
			Example:     f.Example,
		})
	}
	return ImportTemplate{Entity: "catalog", Version: "1.0", Columns: cols}
}

// ImportRowError describes a row the mapper dropped.
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportRequest is the JSON import body. Items are raw spreadsheet rows.
type ImportRequest struct {
	Items               []map[string]string `json:"items"`
	Headers             []string            `json:"headers,omitempty"`
	Mapping             map[string]string   `json:"mapping,omitempty"`
	ExtraColumns        []string            `json:"extraColumns,omitempty"`
	Supplier            string              `json:"supplier"`
	OwnerID             string              `json:"ownerId,omitempty"`
	ProtectActiveOrders *bool               `json:"protectActiveOrders,omitempty"`
}

// ImportResponse is the sync outcome plus what the mapper did.
type ImportResponse struct {
	SyncResult
	Dropped     int               `json:"dropped"`
	DroppedRows []ImportRowError  `json:"droppedRows,omitempty"`
	Mapping     map[string]string `json:"mapping"`
}
