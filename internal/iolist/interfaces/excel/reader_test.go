package excel

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	iolist "dp-manager/internal/iolist/domain"
)

func buildUpload(t *testing.T, sheetName string, rows [][]string, deviceRows [][]string) *bytes.Reader {
	t.Helper()
	book := excelize.NewFile()
	book.SetSheetName("Sheet1", sheetName)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := book.SetCellValue(sheetName, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	if deviceRows != nil {
		if _, err := book.NewSheet("Device List"); err != nil {
			t.Fatalf("device sheet: %v", err)
		}
		for r, row := range deviceRows {
			for c, value := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := book.SetCellValue("Device List", cell, value); err != nil {
					t.Fatalf("set device cell: %v", err)
				}
			}
		}
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestReadSheet(t *testing.T) {
	upload := buildUpload(t, "IOList", [][]string{
		{"Resource", "Data type", "MQTT Tag"},
		{"ME1", "FLOAT", "me1/temp"},
		{"GE1", "BOOL", "ge1/run"},
	}, [][]string{
		{"No", "Device Name", "Protocol"},
		{"1", "ME1", "MQTT"},
		{"2", "GPS", "NMEA"},
		{"3", ""},
		{"4", "PLC"},
	})

	sheet, err := ReadSheet(upload)
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(sheet.Columns) != 3 || sheet.Columns[2] != "MQTT Tag" {
		t.Errorf("columns = %v", sheet.Columns)
	}
	if len(sheet.Rows) != 2 || sheet.Rows[1][2] != "ge1/run" {
		t.Errorf("rows = %v", sheet.Rows)
	}
	if len(sheet.Devices) != 3 {
		t.Fatalf("devices = %v", sheet.Devices)
	}
	if sheet.Devices[1].Name != "GPS" || sheet.Devices[1].Protocol != "NMEA" {
		t.Errorf("device[1] = %+v", sheet.Devices[1])
	}
	// A device row without a protocol cell defaults to MQTT.
	if sheet.Devices[2].Name != "PLC" || sheet.Devices[2].Protocol != "MQTT" {
		t.Errorf("device[2] = %+v", sheet.Devices[2])
	}
}

func TestReadSheetCaseInsensitiveName(t *testing.T) {
	upload := buildUpload(t, "iolist", [][]string{{"Resource"}}, nil)
	sheet, err := ReadSheet(upload)
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(sheet.Columns) != 1 {
		t.Errorf("columns = %v", sheet.Columns)
	}
}

func TestReadSheetMissingDataSheet(t *testing.T) {
	upload := buildUpload(t, "Summary", [][]string{{"whatever"}}, nil)
	if _, err := ReadSheet(upload); !errors.Is(err, iolist.ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestReadSheetNotAWorkbook(t *testing.T) {
	if _, err := ReadSheet(bytes.NewReader([]byte("plain text"))); err == nil {
		t.Fatal("expected error for non-xlsx payload")
	}
}

func TestBuildWorkbookRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	header := &iolist.Header{
		ID: 1, HullNo: "H2567", IMO: "IMO9991862",
		DateKey: "20260201_000000", FileName: "H2567_IMO9991862.xlsx",
		CreatedAt: now, UpdatedAt: now,
	}
	raw := iolist.NewRowData()
	raw.Set("Resource", "ME1")
	raw.Set("Custom Column", "kept")
	raw.Set("MQTT Tag", "me1/temp")
	items := []*iolist.Item{{ID: 10, HeaderID: 1, Raw: raw}}
	devices := []*iolist.Device{{ID: 1, HeaderID: 1, Name: "ME1", Protocol: iolist.ProtocolMQTT}}

	payload, err := BuildWorkbook(header, items, devices)
	if err != nil {
		t.Fatalf("BuildWorkbook: %v", err)
	}

	sheet, err := ReadSheet(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	want := []string{"Resource", "Custom Column", "MQTT Tag"}
	if len(sheet.Columns) != len(want) {
		t.Fatalf("columns = %v", sheet.Columns)
	}
	for i, col := range want {
		if sheet.Columns[i] != col {
			t.Errorf("column %d = %q, want %q", i, sheet.Columns[i], col)
		}
	}
	if len(sheet.Rows) != 1 || sheet.Rows[0][1] != "kept" {
		t.Errorf("rows = %v", sheet.Rows)
	}
	if len(sheet.Devices) != 1 || sheet.Devices[0].Name != "ME1" {
		t.Errorf("devices = %v", sheet.Devices)
	}

	if name := WorkbookFileName(header); name != "IOList_H2567_IMO9991862_20260201_000000.xlsx" {
		t.Errorf("file name = %q", name)
	}
}
