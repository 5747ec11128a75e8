package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// cleanHeaders trims headers and drops the template's required marker.
// Header text is otherwise kept as written; it becomes the extendedData key.
func cleanHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.TrimSpace(h)
		h = strings.TrimSuffix(h, " *")
		headers[i] = h
	}
	return headers
}

// buildRow zips a record onto headers. Blank and repeated headers are
// skipped; the first column with a given header wins.
func buildRow(headers, record []string, rowNum int) (map[string]string, bool) {
	row := make(map[string]string, len(headers)+1)
	nonEmpty := false
	for i, value := range record {
		if i >= len(headers) || headers[i] == "" {
			continue
		}
		if _, seen := row[headers[i]]; seen {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			nonEmpty = true
		}
		row[headers[i]] = value
	}
	row[services.RowNumberKey] = strconv.Itoa(rowNum) // Track row number for error reporting
	return row, nonEmpty
}

func uniqueHeaders(headers []string) []string {
	seen := make(map[string]struct{}, len(headers))
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// parseCSV parses a CSV file into its header row and data rows
func parseCSV(file io.Reader) ([]string, []map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Read header
	record, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headers := cleanHeaders(record)

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}
		lineNum++

		if row, ok := buildRow(headers, record, lineNum); ok {
			rows = append(rows, row)
		}
	}

	return uniqueHeaders(headers), rows, nil
}

// parseXLSX parses the first sheet of an Excel file, preferring one named
// "Catalog" or "Products".
func parseXLSX(file io.Reader) ([]string, []map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Catalog") || strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	// First row is header
	headers := cleanHeaders(excelRows[0])

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		if row, ok := buildRow(headers, excelRow, rowIdx+2); ok {
			rows = append(rows, row)
		}
	}

	return uniqueHeaders(headers), rows, nil
}

// writeTemplateCSV writes the template header row
func writeTemplateCSV(w io.Writer, template models.ImportTemplate) error {
	writer := csv.NewWriter(w)

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// writeTemplateXLSX writes an Excel template with a header row and an
// instructions sheet
func writeTemplateXLSX(w io.Writer, template models.ImportTemplate) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		style := headerStyle
		if col.Required {
			headerText = col.Name + " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, headerText)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	if _, err := f.NewSheet("Instructions"); err != nil {
		return err
	}
	f.SetCellValue("Instructions", "A1", "Catalog Import Instructions")
	f.SetCellValue("Instructions", "A3", "Each import replaces the full catalog of the selected supplier.")
	f.SetCellValue("Instructions", "A4", "Rows are matched by Item Code. Codes missing from the file are removed.")
	f.SetCellValue("Instructions", "A5", "Headers are matched loosely: case, spacing and accents are ignored.")
	f.SetCellValue("Instructions", "A6", "Columns marked * are required. Rows missing them are skipped and reported.")

	f.SetCellValue("Instructions", "A8", "Column")
	f.SetCellValue("Instructions", "B8", "Description")
	f.SetCellValue("Instructions", "C8", "Required")
	f.SetCellValue("Instructions", "D8", "Type")
	f.SetCellValue("Instructions", "E8", "Example")

	for i, col := range template.Columns {
		row := i + 9
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "E", 15)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	return f.Write(w)
}

var exportHeaders = []string{
	"Item Code", "Supplier", "Producer", "Product Name", "Vintage", "Pack Size", "Bottle Size", "Type",
	"FOB Case", "Landed Case", "Wholesale Case", "Wholesale Bottle", "SRP", "Frontline Bottle", "Frontline Case", "Formula",
}

// writeCatalogXLSX renders priced catalog rows as a workbook.
func writeCatalogXLSX(w io.Writer, products []models.ProductWithPrice) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2})

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for r, p := range products {
		values := []interface{}{
			p.ItemCode, p.Supplier, p.Producer, p.ProductName, p.Vintage, p.PackSize, p.BottleSize, p.ProductType,
			p.FOBCasePrice, p.Price.LandedCase, p.Price.WholesaleCase, p.Price.WholesaleBottle,
			p.Price.SRP, p.Price.FrontlineBottle, p.Price.FrontlineCase, string(p.Price.CategoryUsed),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	if len(products) > 0 {
		first, _ := excelize.CoordinatesToCellName(9, 2)
		last, _ := excelize.CoordinatesToCellName(15, len(products)+1)
		f.SetCellStyle(sheetName, first, last, moneyStyle)
	}
	f.SetColWidth(sheetName, "A", "H", 18)
	f.SetColWidth(sheetName, "D", "D", 40)

	return f.Write(w)
}
