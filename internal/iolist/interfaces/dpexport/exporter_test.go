package dpexport

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	iolist "dp-manager/internal/iolist/domain"
)

func testItem(id int64, values map[string]string) *iolist.Item {
	raw := iolist.NewRowData()
	for _, col := range iolist.RequiredColumns {
		raw.Set(col, values[col])
	}
	item := &iolist.Item{ID: id, HeaderID: 1, Raw: raw}
	item.Reproject(iolist.NewNamingRegistry())
	return item
}

func buildFixture(t *testing.T, items []*iolist.Item, devices []*iolist.Device) string {
	t.Helper()
	exporter, err := NewExporter(DefaultProfile())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	header := &iolist.Header{ID: 1, HullNo: "H2567", IMO: "IMO9991862", DateKey: "20260126_235247"}
	now := time.Date(2026, 1, 26, 23, 52, 47, 0, time.UTC)
	payload, err := exporter.Build(header, items, devices, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return string(payload)
}

func TestBuildHeaderSection(t *testing.T) {
	doc := buildFixture(t, nil, nil)

	for _, want := range []string{
		`<sdd:Package xmlns:device="urn:BLUEONE:DEVICE_DATA_MAP"`,
		`<sdd:ShipID>IMO9991862</sdd:ShipID>`,
		`<sdd:TimeStamp>2026-01-26T23:52:47.000Z</sdd:TimeStamp>`,
		`<sdd:Author>Uangel</sdd:Author>`,
		`<dmd:Name>hs4_profile</dmd:Name>`,
		`<dmd:Version>1.0</dmd:Version>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s", want)
		}
	}
	if !strings.HasPrefix(doc, xml.Header) {
		t.Error("document missing XML declaration")
	}
}

func TestBuildInstChannel(t *testing.T) {
	item := testItem(7, map[string]string{
		"Resource": "ME1", "Data type": "FLOAT", "RuleNaming": "hs4sd_v1",
		"Level 1": "Engine", "Measure": "Temp",
		"Description": "Exhaust temp", "Calculation": "0.1",
		"MQTT Tag": "me1/temp",
	})
	doc := buildFixture(t, []*iolist.Item{item}, nil)

	for _, want := range []string{
		`<sdd:LocalID>/hs4sd_v1/Engine/Temp</sdd:LocalID>`,
		`<sdd:Type>Inst</sdd:Type>`,
		`<sdd:UpdateCycle>15</sdd:UpdateCycle>`,
		`<sdd:CalculationPeriod>3600</sdd:CalculationPeriod>`,
		`<sdd:Type>Decimal</sdd:Type>`,
		`<dmd:ChannelType>Data</dmd:ChannelType>`,
		`<dmd:Direction>RO</dmd:Direction>`,
		`<dmd:InoutType>AI</dmd:InoutType>`,
		`<dmd:Scale>0.1</dmd:Scale>`,
		`<dmd:InstCode>Inst</dmd:InstCode>`,
		`<device:ID>ME1</device:ID>`,
		`<device:InterfaceID>ME1</device:InterfaceID>`,
		`<device:OriginTag>me1/temp</device:OriginTag>`,
		`<device:MQTT name="me1/temp"`,
		`<dmd:Column name="Resource">ME1</dmd:Column>`,
		`<dmd:Column name="Remark"></dmd:Column>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s", want)
		}
	}
	if strings.Contains(doc, "<sdd:NameObject>") {
		t.Error("default naming rule should not emit a NameObject")
	}
}

func TestBuildAlarmAndStatusChannels(t *testing.T) {
	alarm := testItem(1, map[string]string{
		"Resource": "FIRE", "Measure": "alarm_high", "MQTT Tag": "fire/high",
	})
	status := testItem(2, map[string]string{
		"Resource": "GE1", "Measure": "run", "MQTT Tag": "ge1/run",
	})
	doc := buildFixture(t, []*iolist.Item{alarm, status}, nil)

	if !strings.Contains(doc, `<sdd:Type>Alert</sdd:Type>`) {
		t.Error("alarm channel not typed Alert")
	}
	if !strings.Contains(doc, `<dmd:ChannelType>Alarm</dmd:ChannelType>`) {
		t.Error("alarm channel type missing")
	}
	if !strings.Contains(doc, `<dmd:InoutType>DI</dmd:InoutType>`) {
		t.Error("alarm inout type missing")
	}
	if !strings.Contains(doc, `<sdd:Type>Status</sdd:Type>`) {
		t.Error("status channel not typed Status")
	}
	// Alert and Status channels carry no sampling cycle.
	if strings.Contains(doc, "<sdd:UpdateCycle>") {
		t.Error("unexpected update cycle on alarm/status channels")
	}
}

func TestBuildNMEAChannel(t *testing.T) {
	item := testItem(3, map[string]string{
		"Resource": "GPS", "Data type": "STRING", "Measure": "Pos",
		"Description": "Position", "MQTT Tag": "unused",
	})
	item.Raw.Set("NMEA Tag", "GPGGA/position")
	devices := []*iolist.Device{{ID: 1, HeaderID: 1, Name: "GPS", Protocol: iolist.ProtocolNMEA}}
	doc := buildFixture(t, []*iolist.Item{item}, devices)

	for _, want := range []string{
		`<sdd:LocalID>/blueone_tagnative/GPS/GPS/GPGGA/position</sdd:LocalID>`,
		`<sdd:NamingRule>blueone_tagnative</sdd:NamingRule>`,
		`<device:NMEA0183 talker="GP" sentence="GGA" pos="1"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s", want)
		}
	}
	if strings.Contains(doc, "<device:MQTT") {
		t.Error("NMEA channel should not carry an MQTT data set")
	}
}

func TestBuildExportsEveryItemInIDOrder(t *testing.T) {
	// No Resource, no registered device, unknown protocol: still exported.
	orphan := testItem(10, map[string]string{"Measure": "Temp", "MQTT Tag": "x/temp"})
	plc := testItem(5, map[string]string{"Resource": "PLC", "Measure": "Temp", "MQTT Tag": "plc/temp"})
	devices := []*iolist.Device{{ID: 1, HeaderID: 1, Name: "PLC", Protocol: iolist.ProtocolModbus}}
	doc := buildFixture(t, []*iolist.Item{orphan, plc}, devices)

	if got := strings.Count(doc, "<sdd:DataChannel>"); got != 2 {
		t.Fatalf("channel count = %d, want 2", got)
	}
	first := strings.Index(doc, "plc/temp")
	second := strings.Index(doc, "x/temp")
	if first < 0 || second < 0 || first > second {
		t.Errorf("items not ordered by id: plc at %d, orphan at %d", first, second)
	}
	// Non-NMEA protocols fall back to the MQTT shape.
	if got := strings.Count(doc, "<device:MQTT"); got != 2 {
		t.Errorf("MQTT data set count = %d, want 2", got)
	}
}

func TestFileName(t *testing.T) {
	header := &iolist.Header{IMO: "IMO9991862"}
	now := time.Date(2026, 1, 26, 23, 52, 47, 0, time.UTC)
	if got := FileName(header, now); got != "DP_IMO9991862_20260126235247.xml" {
		t.Errorf("file name = %q", got)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Author != "Uangel" || profile.UpdateCycle != 15 || profile.CalculationPeriod != 3600 {
		t.Errorf("profile = %+v", profile)
	}
}

func TestLoadProfileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("author: Acme\nupdate_cycle: 30\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Author != "Acme" || profile.UpdateCycle != 30 {
		t.Errorf("profile = %+v", profile)
	}
	if profile.ModelName != "hs4_profile" {
		t.Errorf("default model name lost: %+v", profile)
	}
}
