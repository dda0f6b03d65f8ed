package importer

import (
	"strconv"
	"strings"
)

// Fixed column layout of the catalog spreadsheet (0-based). The sheet is
// externally authored; positions are part of the contract, not configurable.
const (
	colCategory    = 0
	colItemName    = 3
	colDescription = 4
	colBaseModel   = 5
	colDimensions  = 6
	colStyle       = 7
	colPrice       = 9

	// Add-on reference block: three mandatory slots, one blank column, then
	// five optional slots.
	colAddonMandatoryFirst = 10
	mandatoryAddonSlots    = 3
	colAddonOptionalFirst  = 14
	optionalAddonSlots     = 5
)

// HeaderRows is the number of rows before the first data row.
const HeaderRows = 2

// AddonRef is one textual add-on reference as authored in the sheet, e.g.
// "PL-1 Ivory". Slot and optionality come from the column position.
type AddonRef struct {
	Reference string
	Slot      int
	Optional  bool
}

// ParsedRow is the structured form of one spreadsheet data row.
type ParsedRow struct {
	RowNum      int // 1-based spreadsheet row
	Category    string
	ItemName    string
	Description string
	BaseModel   string
	Dimensions  string
	Style       string
	Price       float64
	Addons      []AddonRef
}

// Empty reports whether the row lacks the identity fields required to be a
// catalog row at all. Empty rows are skipped upstream, not errors.
func (r ParsedRow) Empty() bool {
	return r.BaseModel == "" || r.ItemName == ""
}

// ParseRow converts one raw cell slice into a ParsedRow. It is a pure
// function: no I/O, no persistence. Non-numeric or missing prices coerce to 0
// rather than failing the row.
func ParseRow(cells []string, rowNum int) ParsedRow {
	row := ParsedRow{
		RowNum:      rowNum,
		Category:    cell(cells, colCategory),
		ItemName:    cell(cells, colItemName),
		Description: cell(cells, colDescription),
		BaseModel:   cell(cells, colBaseModel),
		Dimensions:  cell(cells, colDimensions),
		Style:       cell(cells, colStyle),
		Price:       parsePrice(cell(cells, colPrice)),
	}

	for i := 0; i < mandatoryAddonSlots; i++ {
		if ref := cell(cells, colAddonMandatoryFirst+i); ref != "" {
			row.Addons = append(row.Addons, AddonRef{Reference: ref, Slot: i + 1, Optional: false})
		}
	}
	for i := 0; i < optionalAddonSlots; i++ {
		if ref := cell(cells, colAddonOptionalFirst+i); ref != "" {
			row.Addons = append(row.Addons, AddonRef{Reference: ref, Slot: mandatoryAddonSlots + 2 + i, Optional: true})
		}
	}

	return row
}

// cell returns the trimmed value at index i, or "" past the end of the row.
// Excel row slices are ragged: trailing blank cells are simply absent.
func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func parsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	cleaned := strings.ReplaceAll(raw, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}
