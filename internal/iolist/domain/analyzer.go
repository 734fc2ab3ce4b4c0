package iolist

// Analyze recomputes the four quality flags for the full item set of one
// header, in a single pass. The flags are relational to siblings: they are
// only meaningful for the complete set, so callers must pass every item
// under the header and persist the result atomically with the mutation
// that triggered the recomputation.
//
// Items with an empty data channel id are never flagged as duplicate on it;
// the absent identifier is surfaced through HasMissingRequired instead.
// Running Analyze twice over an unchanged set yields identical flags.
func Analyze(items []*Item) {
	byChannelID := make(map[string][]*Item, len(items))
	byDescription := make(map[string][]*Item, len(items))
	byTag := make(map[string][]*Item, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}
		item.IsDuplicateDataChannelID = false
		item.IsDuplicateDescription = false
		item.IsDuplicateMQTTTag = false
		item.HasMissingRequired = missingRequired(item.Raw)

		if item.DataChannelID != "" {
			byChannelID[item.DataChannelID] = append(byChannelID[item.DataChannelID], item)
		}
		if desc := item.Raw.Get(ColumnDescription); desc != "" {
			byDescription[desc] = append(byDescription[desc], item)
		}
		if tag := item.Raw.Get(ColumnMQTTTag); tag != "" {
			byTag[tag] = append(byTag[tag], item)
		}
	}

	for _, group := range byChannelID {
		if len(group) < 2 {
			continue
		}
		for _, item := range group {
			item.IsDuplicateDataChannelID = true
		}
	}
	for _, group := range byDescription {
		if len(group) < 2 {
			continue
		}
		for _, item := range group {
			item.IsDuplicateDescription = true
		}
	}
	for _, group := range byTag {
		if len(group) < 2 {
			continue
		}
		for _, item := range group {
			item.IsDuplicateMQTTTag = true
		}
	}
}

func missingRequired(row RowData) bool {
	for _, col := range RequiredValueColumns {
		if row.Get(col) == "" {
			return true
		}
	}
	return false
}

// MissingRequiredColumns lists the business-required columns that are empty
// in a row, in contract order.
func MissingRequiredColumns(row RowData) []string {
	var missing []string
	for _, col := range RequiredValueColumns {
		if row.Get(col) == "" {
			missing = append(missing, col)
		}
	}
	return missing
}
