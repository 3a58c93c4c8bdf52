// Package importer turns CAD drawings and spreadsheets into the part list
// the nesting engine consumes. DXF files provide the geometry; CSV and Excel
// schedules provide quantities and plain rectangular parts. Delimiters and
// header names are detected automatically.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the parts read from a drawing.
type ImportResult struct {
	Parts    []model.ImportedPart
	Errors   []string
	Warnings []string
}

// ScheduleEntry is one line of a quantity schedule. Width and Height are
// zero unless the row describes a plain rectangular part.
type ScheduleEntry struct {
	Label    string
	Quantity int
	Width    float64
	Height   float64
}

// IsRectangle reports whether the entry carries its own dimensions.
func (e ScheduleEntry) IsRectangle() bool {
	return e.Width > 0 && e.Height > 0
}

// ScheduleResult holds the results of a schedule import.
type ScheduleResult struct {
	Entries  []ScheduleEntry
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Label    int
	Quantity int
	Width    int
	Height   int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"label":    {"label", "name", "part", "part name", "id", "part id", "description", "item"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"width":    {"width", "w", "length", "len", "x"},
	"height":   {"height", "h", "depth", "d", "y"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Matching is case-insensitive against known aliases for each role. When no
// alias matches, a positional mapping is returned together with false:
// Label, Quantity for two or three columns, Label, Width, Height, Quantity
// for four or more.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Label: -1, Quantity: -1, Width: -1, Height: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "label":
					if mapping.Label == -1 {
						mapping.Label = i
					}
				case "quantity":
					if mapping.Quantity == -1 {
						mapping.Quantity = i
					}
				case "width":
					if mapping.Width == -1 {
						mapping.Width = i
					}
				case "height":
					if mapping.Height == -1 {
						mapping.Height = i
					}
				}
			}
		}
	}

	if !isHeader {
		if len(row) >= 4 {
			return ColumnMapping{Label: 0, Width: 1, Height: 2, Quantity: 3}, false
		}
		return ColumnMapping{Label: 0, Quantity: 1, Width: -1, Height: -1}, false
	}

	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts a ScheduleEntry from a row using the given column mapping.
// Returns the entry and an error message when the row is unusable.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (ScheduleEntry, string) {
	label := getCell(row, mapping.Label)
	if label == "" {
		return ScheduleEntry{}, fmt.Sprintf("%s: Missing part label", rowLabel)
	}

	qtyStr := getCell(row, mapping.Quantity)
	if qtyStr == "" {
		return ScheduleEntry{}, fmt.Sprintf("%s: Missing quantity value", rowLabel)
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return ScheduleEntry{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr)
	}
	if qty < 0 {
		return ScheduleEntry{}, fmt.Sprintf("%s: Quantity must not be negative", rowLabel)
	}

	entry := ScheduleEntry{Label: label, Quantity: qty}

	widthStr := getCell(row, mapping.Width)
	heightStr := getCell(row, mapping.Height)
	if widthStr == "" && heightStr == "" {
		return entry, ""
	}
	if widthStr == "" || heightStr == "" {
		return ScheduleEntry{}, fmt.Sprintf("%s: Width and height must be given together", rowLabel)
	}
	width, err := strconv.ParseFloat(widthStr, 64)
	if err != nil {
		return ScheduleEntry{}, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr)
	}
	height, err := strconv.ParseFloat(heightStr, 64)
	if err != nil {
		return ScheduleEntry{}, fmt.Sprintf("%s: Invalid height '%s'", rowLabel, heightStr)
	}
	if width <= 0 || height <= 0 {
		return ScheduleEntry{}, fmt.Sprintf("%s: Width and height must be positive", rowLabel)
	}
	entry.Width, entry.Height = width, height
	return entry, ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportScheduleCSV imports a quantity schedule from a CSV file.
// Supports comma, semicolon, tab, and pipe delimiters.
func ImportScheduleCSV(path string) ScheduleResult {
	result := ScheduleResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return scheduleFromRows(records, "Line", result.Warnings)
}

// ImportScheduleFromReader imports a schedule from a CSV reader with a
// known delimiter.
func ImportScheduleFromReader(reader io.Reader, delimiter rune) ScheduleResult {
	result := ScheduleResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return scheduleFromRows(records, "Line", nil)
}

// ImportScheduleExcel imports a schedule from the first sheet of an Excel
// workbook.
func ImportScheduleExcel(path string) ScheduleResult {
	result := ScheduleResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return scheduleFromRows(rows, "Row", nil)
}

// ImportSchedule picks the CSV or Excel reader by file extension.
func ImportSchedule(path string) ScheduleResult {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return ImportScheduleExcel(path)
	}
	return ImportScheduleCSV(path)
}

// scheduleFromRows is the shared logic for CSV and Excel data.
func scheduleFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ScheduleResult {
	result := ScheduleResult{Warnings: initialWarnings}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Label == -1 {
			missing = append(missing, "Label")
		}
		if mapping.Quantity == -1 {
			missing = append(missing, "Quantity")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 2 {
		// An unrecognized header still has a non-numeric quantity column.
		if _, err := strconv.Atoi(getCell(rows[0], mapping.Quantity)); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := make(map[string]int)
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		entry, errMsg := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}

		key := strings.ToLower(entry.Label)
		if idx, dup := seen[key]; dup {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: Duplicate entry for '%s' replaces the earlier one", rowLabel, entry.Label))
			result.Entries[idx] = entry
			continue
		}
		seen[key] = len(result.Entries)
		result.Entries = append(result.Entries, entry)
	}

	return result
}

// ApplySchedule sets part quantities from a schedule. Entries match a part
// by ID or label, case-insensitively. Unmatched entries with dimensions
// become rectangular parts; other unmatched entries produce a warning.
func ApplySchedule(parts []model.ImportedPart, entries []ScheduleEntry) ([]model.ImportedPart, []string) {
	out := append([]model.ImportedPart(nil), parts...)
	var warnings []string

	for _, e := range entries {
		idx := -1
		for i, p := range out {
			if strings.EqualFold(p.ID, e.Label) || strings.EqualFold(p.Label, e.Label) {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0:
			out[idx].Quantity = e.Quantity
		case e.IsRectangle():
			out = append(out, model.NewRectanglePart(e.Label, e.Width, e.Height, e.Quantity))
		default:
			warnings = append(warnings, fmt.Sprintf("Schedule entry '%s' matches no imported part", e.Label))
		}
	}

	return out, warnings
}
