package iolist

import "strings"

// DefaultNamingRule is the naming convention assumed when a row does not
// select one explicitly.
const DefaultNamingRule = "hs4sd_v1"

// NamingRuleFunc derives a data channel identifier from a row. It must be a
// pure function of the row's naming fields: identical inputs yield an
// identical identifier.
type NamingRuleFunc func(row RowData) string

// NamingRegistry maps RuleNaming values to derivation functions. New
// conventions can be registered without affecting identifiers produced by
// existing ones.
type NamingRegistry struct {
	rules    map[string]NamingRuleFunc
	fallback NamingRuleFunc
}

// NewNamingRegistry builds a registry with the hs4sd_v1 convention
// registered and used as the fallback for unknown RuleNaming values.
func NewNamingRegistry() *NamingRegistry {
	registry := &NamingRegistry{
		rules:    make(map[string]NamingRuleFunc),
		fallback: PathNamingRule,
	}
	registry.Register(DefaultNamingRule, PathNamingRule)
	return registry
}

// Register adds or replaces a convention.
func (r *NamingRegistry) Register(name string, fn NamingRuleFunc) {
	if name == "" || fn == nil {
		return
	}
	r.rules[name] = fn
}

// Derive computes the data channel identifier for a row using the convention
// its RuleNaming field selects.
func (r *NamingRegistry) Derive(row RowData) string {
	if r == nil {
		return PathNamingRule(row)
	}
	if fn, ok := r.rules[row.Get(ColumnRuleNaming)]; ok {
		return fn(row)
	}
	return r.fallback(row)
}

// PathNamingRule is the hs4sd_v1 derivation: a slash-joined path of the
// non-empty naming fields, in contract order.
func PathNamingRule(row RowData) string {
	fields := []string{
		row.Get(ColumnRuleNaming),
		row.Get(ColumnLevel1),
		row.Get(ColumnLevel2),
		row.Get(ColumnLevel3),
		row.Get(ColumnLevel4),
		row.Get(ColumnMiscellaneous),
		row.Get(ColumnMeasure),
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			parts = append(parts, field)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}
