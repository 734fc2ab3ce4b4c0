package iolist

import (
	"testing"
)

func TestRowData_OrderPreservedThroughJSON(t *testing.T) {
	row := NewRowData()
	row.Set("Zulu", "1")
	row.Set("Alpha", "2")
	row.Set("Mike", "")
	row.Set("Zulu", "updated")

	data, err := row.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Zulu":"updated","Alpha":"2","Mike":""}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}

	parsed, err := ParseRowData(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	keys := parsed.Keys()
	if len(keys) != 3 || keys[0] != "Zulu" || keys[1] != "Alpha" || keys[2] != "Mike" {
		t.Fatalf("key order lost: %v", keys)
	}
	if parsed.Get("Zulu") != "updated" {
		t.Fatalf("expected last write to win, got %q", parsed.Get("Zulu"))
	}
	if !parsed.Has("Mike") || parsed.Get("Mike") != "" {
		t.Fatal("empty value must survive the round trip")
	}
}

func TestRowData_CloneIsIndependent(t *testing.T) {
	row := NewRowData()
	row.Set("Resource", "GE1")
	clone := row.Clone()
	clone.Set("Resource", "GE2")
	clone.Set("Extra", "x")
	if row.Get("Resource") != "GE1" {
		t.Fatal("clone write leaked into original")
	}
	if row.Has("Extra") {
		t.Fatal("clone key leaked into original")
	}
}

func TestParseRowData_RejectsNonObject(t *testing.T) {
	if _, err := ParseRowData([]byte(`["a"]`)); err == nil {
		t.Fatal("expected error for JSON array")
	}
	if _, err := ParseRowData([]byte(`{"a":1}`)); err == nil {
		t.Fatal("expected error for non-string value")
	}
}
