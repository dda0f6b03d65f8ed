package importer

import "strings"

// GroupedItem is one logical catalog item folded from all rows sharing a base
// model, with its variant rows in source order.
type GroupedItem struct {
	BaseModel   string
	Category    string
	Name        string
	Description string
	Dimensions  string
	Rows        []ParsedRow
}

// GroupRows folds parsed rows into grouped items keyed by base model,
// preserving first-seen order. Item-level fields and duplicate
// (base model, style) rows follow last-write-wins: the sheet is authoritative
// and later rows override earlier ones for the same key.
func GroupRows(rows []ParsedRow) []*GroupedItem {
	byModel := make(map[string]*GroupedItem)
	var ordered []*GroupedItem

	for _, row := range rows {
		if row.Empty() {
			continue
		}

		key := strings.ToLower(row.BaseModel)
		group, ok := byModel[key]
		if !ok {
			group = &GroupedItem{BaseModel: row.BaseModel}
			byModel[key] = group
			ordered = append(ordered, group)
		}

		group.Category = row.Category
		group.Name = row.ItemName
		group.Description = row.Description
		group.Dimensions = row.Dimensions

		styleKey := strings.ToLower(row.Style)
		replaced := false
		for i, existing := range group.Rows {
			if strings.ToLower(existing.Style) == styleKey {
				group.Rows[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			group.Rows = append(group.Rows, row)
		}
	}

	return ordered
}
