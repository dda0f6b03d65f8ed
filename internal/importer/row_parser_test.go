package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeCells(values map[int]string) []string {
	cells := make([]string, 19)
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func TestParseRowFields(t *testing.T) {
	cells := makeCells(map[int]string{
		colCategory:    "Kitchens",
		colItemName:    "Base Cabinet",
		colDescription: "Two door base unit",
		colBaseModel:   "BC-30",
		colDimensions:  "30x24x34",
		colStyle:       "Shaker White",
		colPrice:       "$1,234.50",
	})

	row := ParseRow(cells, 3)

	assert.Equal(t, 3, row.RowNum)
	assert.Equal(t, "Kitchens", row.Category)
	assert.Equal(t, "Base Cabinet", row.ItemName)
	assert.Equal(t, "Two door base unit", row.Description)
	assert.Equal(t, "BC-30", row.BaseModel)
	assert.Equal(t, "30x24x34", row.Dimensions)
	assert.Equal(t, "Shaker White", row.Style)
	assert.Equal(t, 1234.50, row.Price)
	assert.False(t, row.Empty())
	assert.Empty(t, row.Addons)
}

func TestParseRowTrimsCells(t *testing.T) {
	cells := makeCells(map[int]string{
		colItemName:  "  Wall Cabinet  ",
		colBaseModel: " WC-24 ",
		colStyle:     "\tOak\t",
	})

	row := ParseRow(cells, 5)

	assert.Equal(t, "Wall Cabinet", row.ItemName)
	assert.Equal(t, "WC-24", row.BaseModel)
	assert.Equal(t, "Oak", row.Style)
}

func TestParseRowAddonSlots(t *testing.T) {
	cells := makeCells(map[int]string{
		colItemName:                "Base Cabinet",
		colBaseModel:               "BC-30",
		colAddonMandatoryFirst:     "TK-1 White",
		colAddonMandatoryFirst + 2: "HD-2 Chrome",
		colAddonOptionalFirst:      "PL-1 Ivory",
		colAddonOptionalFirst + 4:  "LT-9 Warm",
	})

	row := ParseRow(cells, 4)

	assert.Len(t, row.Addons, 4)
	assert.Equal(t, AddonRef{Reference: "TK-1 White", Slot: 1, Optional: false}, row.Addons[0])
	assert.Equal(t, AddonRef{Reference: "HD-2 Chrome", Slot: 3, Optional: false}, row.Addons[1])
	assert.Equal(t, AddonRef{Reference: "PL-1 Ivory", Slot: 5, Optional: true}, row.Addons[2])
	assert.Equal(t, AddonRef{Reference: "LT-9 Warm", Slot: 9, Optional: true}, row.Addons[3])
}

func TestParseRowRaggedCells(t *testing.T) {
	// Excel drops trailing empty cells, so rows can be shorter than the layout.
	row := ParseRow([]string{"Kitchens", "", "", "Base Cabinet", "", "BC-30"}, 7)

	assert.Equal(t, "BC-30", row.BaseModel)
	assert.Equal(t, "", row.Style)
	assert.Equal(t, float64(0), row.Price)
	assert.Empty(t, row.Addons)
	assert.False(t, row.Empty())
}

func TestParseRowBadPriceCoercesToZero(t *testing.T) {
	cells := makeCells(map[int]string{
		colItemName:  "Base Cabinet",
		colBaseModel: "BC-30",
		colPrice:     "call for pricing",
	})

	row := ParseRow(cells, 9)

	assert.Equal(t, float64(0), row.Price)
}

func TestParseRowEmpty(t *testing.T) {
	assert.True(t, ParseRow(makeCells(map[int]string{colItemName: "Cabinet"}), 3).Empty())
	assert.True(t, ParseRow(makeCells(map[int]string{colBaseModel: "BC-30"}), 3).Empty())
	assert.True(t, ParseRow(nil, 3).Empty())
}
