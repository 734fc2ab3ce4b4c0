package iolist

import "testing"

func analyzedItem(t *testing.T, registry *NamingRegistry, level1, measure, description, tag string) *Item {
	t.Helper()
	row := NewRowData()
	row.Set(ColumnResource, "GE1")
	row.Set(ColumnDataType, "FLOAT")
	row.Set(ColumnRuleNaming, "hs4sd_v1")
	row.Set(ColumnLevel1, level1)
	row.Set(ColumnMeasure, measure)
	row.Set(ColumnDescription, description)
	row.Set(ColumnMQTTTag, tag)
	item := &Item{HeaderID: 1, Raw: row}
	item.Reproject(registry)
	return item
}

func TestAnalyze_DuplicateChannelIDSymmetry(t *testing.T) {
	registry := NewNamingRegistry()
	a := analyzedItem(t, registry, "engine", "temp", "desc a", "tag/a")
	b := analyzedItem(t, registry, "engine", "temp", "desc b", "tag/b")
	c := analyzedItem(t, registry, "pump", "pressure", "desc c", "tag/c")
	items := []*Item{a, b, c}

	Analyze(items)
	if !a.IsDuplicateDataChannelID || !b.IsDuplicateDataChannelID {
		t.Fatal("expected both sharing items flagged")
	}
	if c.IsDuplicateDataChannelID {
		t.Fatal("unique item must not be flagged")
	}

	// A third member joins the group: all three flagged.
	d := analyzedItem(t, registry, "engine", "temp", "desc d", "tag/d")
	items = append(items, d)
	Analyze(items)
	for _, item := range []*Item{a, b, d} {
		if !item.IsDuplicateDataChannelID {
			t.Fatal("expected all three group members flagged")
		}
	}

	// Diverging one of a pair clears both.
	d.Raw.Set(ColumnLevel1, "boiler")
	d.Reproject(registry)
	b.Raw.Set(ColumnLevel1, "hull")
	b.Reproject(registry)
	Analyze(items)
	if a.IsDuplicateDataChannelID || b.IsDuplicateDataChannelID || d.IsDuplicateDataChannelID {
		t.Fatal("expected no duplicate flags after divergence")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	registry := NewNamingRegistry()
	items := []*Item{
		analyzedItem(t, registry, "engine", "temp", "same", "tag/a"),
		analyzedItem(t, registry, "pump", "rpm", "same", "tag/a"),
		analyzedItem(t, registry, "", "", "", "tag/c"),
	}
	Analyze(items)
	first := make([]Item, len(items))
	for i, item := range items {
		first[i] = *item
	}
	Analyze(items)
	for i, item := range items {
		if first[i].IsDuplicateDataChannelID != item.IsDuplicateDataChannelID ||
			first[i].IsDuplicateDescription != item.IsDuplicateDescription ||
			first[i].IsDuplicateMQTTTag != item.IsDuplicateMQTTTag ||
			first[i].HasMissingRequired != item.HasMissingRequired {
			t.Fatalf("flags changed on re-run for item %d", i)
		}
	}
}

func TestAnalyze_IndependentGroupings(t *testing.T) {
	registry := NewNamingRegistry()
	a := analyzedItem(t, registry, "engine", "temp", "shared", "tag/a")
	b := analyzedItem(t, registry, "pump", "rpm", "shared", "tag/b")
	Analyze([]*Item{a, b})
	if !a.IsDuplicateDescription || !b.IsDuplicateDescription {
		t.Fatal("expected description duplicates flagged")
	}
	if a.IsDuplicateDataChannelID || b.IsDuplicateDataChannelID {
		t.Fatal("channel id grouping must be independent of description")
	}
	if a.IsDuplicateMQTTTag || b.IsDuplicateMQTTTag {
		t.Fatal("tag grouping must be independent of description")
	}
}

func TestAnalyze_EmptyChannelIDNotDuplicate(t *testing.T) {
	registry := NewNamingRegistry()
	a := analyzedItem(t, registry, "", "", "a", "tag/a")
	b := analyzedItem(t, registry, "", "", "b", "tag/b")
	a.Raw.Set(ColumnRuleNaming, "")
	b.Raw.Set(ColumnRuleNaming, "")
	a.Reproject(registry)
	b.Reproject(registry)
	if a.DataChannelID != "" || b.DataChannelID != "" {
		t.Fatalf("expected empty channel ids, got %q and %q", a.DataChannelID, b.DataChannelID)
	}
	Analyze([]*Item{a, b})
	if a.IsDuplicateDataChannelID || b.IsDuplicateDataChannelID {
		t.Fatal("empty identifiers must never count as duplicates")
	}
	if !a.HasMissingRequired || !b.HasMissingRequired {
		t.Fatal("expected missing-required flag for empty naming fields")
	}
}

func TestMissingRequiredColumns(t *testing.T) {
	row := NewRowData()
	row.Set(ColumnResource, "GE1")
	row.Set(ColumnDataType, "")
	row.Set(ColumnRuleNaming, "hs4sd_v1")
	row.Set(ColumnLevel1, "")
	row.Set(ColumnMeasure, "temp")
	missing := MissingRequiredColumns(row)
	if len(missing) != 2 || missing[0] != ColumnDataType || missing[1] != ColumnLevel1 {
		t.Fatalf("expected [Data type, Level 1], got %v", missing)
	}
}
