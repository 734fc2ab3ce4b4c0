package iolist

import "strings"

// Column names of the fixed IO List contract. Matching is exact and
// case-sensitive; extra columns pass through untouched.
const (
	ColumnResource      = "Resource"
	ColumnDataType      = "Data type"
	ColumnRuleNaming    = "RuleNaming"
	ColumnLevel1        = "Level 1"
	ColumnLevel2        = "Level 2"
	ColumnLevel3        = "Level 3"
	ColumnLevel4        = "Level 4"
	ColumnMiscellaneous = "Miscellaneous"
	ColumnMeasure       = "Measure"
	ColumnDescription   = "Description"
	ColumnCalculation   = "Calculation"
	ColumnMQTTTag       = "MQTT Tag"
	ColumnRemark        = "Remark"
)

// RequiredColumns must all be present in the header row of an upload.
var RequiredColumns = []string{
	ColumnResource,
	ColumnDataType,
	ColumnRuleNaming,
	ColumnLevel1,
	ColumnLevel2,
	ColumnLevel3,
	ColumnLevel4,
	ColumnMiscellaneous,
	ColumnMeasure,
	ColumnDescription,
	ColumnCalculation,
	ColumnMQTTTag,
	ColumnRemark,
}

// RequiredValueColumns must carry a non-empty value for an item to be
// considered complete. An empty value is advisory (has_missing_required),
// except the MQTT tag which blocks ingestion entirely.
var RequiredValueColumns = []string{
	ColumnResource,
	ColumnDataType,
	ColumnRuleNaming,
	ColumnLevel1,
	ColumnMeasure,
}

// ValidateColumns checks the header row against RequiredColumns.
// It returns a SchemaError listing every missing column, in contract order.
func ValidateColumns(columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[strings.TrimSpace(col)] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// NormalizeRows turns a header row plus data rows into column-keyed records.
// Every column is preserved verbatim as a trimmed string; absent cells become
// "". Fully blank rows are dropped. The MQTT tag must be non-empty in every
// surviving record or the whole input is rejected.
func NormalizeRows(columns []string, rows [][]string) ([]RowData, error) {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, strings.TrimSpace(col))
	}

	blank := true
	for _, name := range names {
		if name != "" {
			blank = false
			break
		}
	}
	if len(names) == 0 || blank {
		return nil, ErrEmptyDocument
	}
	if err := ValidateColumns(names); err != nil {
		return nil, err
	}

	records := make([]RowData, 0, len(rows))
	for _, row := range rows {
		record := NewRowData()
		hasData := false
		for i, name := range names {
			if name == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if value != "" {
				hasData = true
			}
			record.Set(name, value)
		}
		if !hasData {
			continue
		}
		if record.Get(ColumnMQTTTag) == "" {
			return nil, &RequiredValueError{Row: len(records) + 1, Column: ColumnMQTTTag}
		}
		records = append(records, record)
	}
	return records, nil
}
