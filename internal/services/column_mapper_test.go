package services

import (
	"errors"
	"testing"

	"catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "itemcode", NormalizeHeader("Item Code"))
	assert.Equal(t, "itemcode", NormalizeHeader(" item_code "))
	assert.Equal(t, "itemcode", NormalizeHeader("ITEM-CODE"))
	assert.Equal(t, "appellation", NormalizeHeader("Appellatión"))
	assert.Equal(t, "fobcase", NormalizeHeader("FOB Case *"))
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 1234.5, ParsePrice("$1,234.50"))
	assert.Equal(t, 99.0, ParsePrice(" 99 "))
	assert.Equal(t, 0.0, ParsePrice("call"))
	assert.Equal(t, 0.0, ParsePrice(""))
	assert.Equal(t, 0.0, ParsePrice("1.2.3"))
}

func TestColumnMapper_AutoMapFirstMatchingHeaderWins(t *testing.T) {
	m := NewColumnMapper(nil)

	mapping := m.AutoMap([]string{"SKU", "Item Code", "Wine Name", "Name", "Brand", "Price"})

	assert.Equal(t, "SKU", mapping[models.FieldItemCode])
	assert.Equal(t, "Name", mapping[models.FieldProductName])
	assert.Equal(t, "Brand", mapping[models.FieldProducer])
	assert.Equal(t, "Price", mapping[models.FieldFOBCasePrice])
	_, ok := mapping[models.FieldVintage]
	assert.False(t, ok)
}

func TestColumnMapper_MapNormalizesRows(t *testing.T) {
	m := NewColumnMapper(nil)
	rows := []map[string]string{
		{"Item Code": " A1 ", "Product Name": "Barolo", "FOB Case": "$180.00", "Pack": "", "Size": "", "Tasting Notes": "tar and roses", "Score": " "},
		{"Item Code": "A2", "Product Name": "Rosso", "FOB Case": "n/a", "Pack": "6", "Size": "375ml", "Type": "Red", "Tasting Notes": "", "Score": "92"},
	}

	res, err := m.Map(MappingInput{
		Rows:         rows,
		Headers:      []string{"Item Code", "Product Name", "FOB Case", "Pack", "Size", "Type", "Tasting Notes", "Score"},
		ExtraColumns: []string{"Tasting Notes", "Score", "Item Code"},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, res.MissingRequired)

	first := res.Items[0]
	assert.Equal(t, "A1", first.ItemCode)
	assert.Equal(t, 180.0, first.FOBCasePrice)
	assert.Equal(t, "12", first.PackSize)
	assert.Equal(t, "750", first.BottleSize)
	assert.Equal(t, "wine", first.ProductType)
	assert.Equal(t, map[string]interface{}{"Tasting Notes": "tar and roses"}, first.ExtendedData)

	second := res.Items[1]
	assert.Equal(t, 0.0, second.FOBCasePrice)
	assert.Equal(t, "6", second.PackSize)
	assert.Equal(t, "375ml", second.BottleSize)
	assert.Equal(t, "Red", second.ProductType)
	assert.Equal(t, map[string]interface{}{"Score": "92"}, second.ExtendedData)
}

func TestColumnMapper_DropsRowsMissingRequiredFields(t *testing.T) {
	m := NewColumnMapper(nil)
	rows := []map[string]string{
		{"Code": "A1", "Title": "Barolo", RowNumberKey: "2"},
		{"Code": "  ", "Title": "No code", RowNumberKey: "3"},
		{"Code": "A3", "Title": "", RowNumberKey: "4"},
		{"Code": "A4", "Title": "Langhe", RowNumberKey: "5"},
	}

	res, err := m.Map(MappingInput{Rows: rows})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "A1", res.Items[0].ItemCode)
	assert.Equal(t, "A4", res.Items[1].ItemCode)
	require.Len(t, res.Dropped, 2)
	assert.Equal(t, 3, res.Dropped[0].Row)
	assert.Equal(t, models.FieldItemCode, res.Dropped[0].Column)
	assert.Equal(t, 4, res.Dropped[1].Row)
	assert.Equal(t, models.FieldProductName, res.Dropped[1].Column)
}

func TestColumnMapper_OverridesWinOverAutoMapping(t *testing.T) {
	m := NewColumnMapper(nil)
	rows := []map[string]string{{"Code": "internal-1", "Supplier SKU": "S-1", "Name": "Barolo"}}

	res, err := m.Map(MappingInput{
		Rows:      rows,
		Overrides: map[string]string{models.FieldItemCode: "Supplier SKU"},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "S-1", res.Items[0].ItemCode)
	assert.Equal(t, "Supplier SKU", res.Mapping[models.FieldItemCode])
}

func TestColumnMapper_UnknownOverrideField(t *testing.T) {
	m := NewColumnMapper(nil)

	_, err := m.Map(MappingInput{Overrides: map[string]string{"colour": "Color"}})

	assert.True(t, errors.Is(err, ErrValidation))
}

func TestColumnMapper_ReportsUnmappedRequiredFields(t *testing.T) {
	m := NewColumnMapper(nil)
	rows := []map[string]string{{"Wine": "Barolo", "Cost": "10"}}

	res, err := m.Map(MappingInput{Rows: rows})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{models.FieldItemCode, models.FieldProductName}, res.MissingRequired)
	assert.Empty(t, res.Items)
	assert.Len(t, res.Dropped, 1)
}
