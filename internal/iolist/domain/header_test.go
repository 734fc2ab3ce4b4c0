package iolist

import (
	"errors"
	"testing"
	"time"
)

func TestParseFilename(t *testing.T) {
	hull, imo, err := ParseFilename("H2567_IMO9991862_IOList_20260125.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hull != "H2567" || imo != "IMO9991862" {
		t.Fatalf("expected (H2567, IMO9991862), got (%s, %s)", hull, imo)
	}
}

func TestParseFilename_CaseInsensitive(t *testing.T) {
	hull, imo, err := ParseFilename("h369_imo1234567_iolist.xls")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hull != "H369" || imo != "IMO1234567" {
		t.Fatalf("expected normalized tokens, got (%s, %s)", hull, imo)
	}
}

func TestParseFilename_MissingIMO(t *testing.T) {
	_, _, err := ParseFilename("H2567_IOList.xlsx")
	var parseErr *FilenameParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected FilenameParseError, got %v", err)
	}
	if parseErr.Name != "H2567_IOList.xlsx" {
		t.Fatalf("error should carry the file name, got %q", parseErr.Name)
	}
}

func TestFormatDateKey(t *testing.T) {
	at := time.Date(2026, time.January, 25, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	if got := FormatDateKey(at); got != "20260125_003000" {
		t.Fatalf("expected UTC date key 20260125_003000, got %s", got)
	}
}

func TestHeaderValidate(t *testing.T) {
	header := &Header{HullNo: "H1", IMO: "IMO1", DateKey: "20260101_000000"}
	if err := header.Validate(); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}
	if err := (&Header{IMO: "IMO1", DateKey: "x"}).Validate(); err == nil {
		t.Fatal("expected error for empty hull number")
	}
}
