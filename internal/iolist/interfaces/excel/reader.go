package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
)

// DataSheetName is the sheet carrying the IO List contract.
const DataSheetName = "IOList"

// ReadSheet parses an uploaded workbook into its tokenized form: the
// header row plus data rows of the IO List sheet, and the rows of the
// device sheet when one is present.
func ReadSheet(r io.Reader) (application.Sheet, error) {
	var sheet application.Sheet

	book, err := excelize.OpenReader(r)
	if err != nil {
		return sheet, fmt.Errorf("excel: open workbook: %w", err)
	}
	defer book.Close()

	dataSheet := findSheet(book, func(name string) bool {
		return strings.EqualFold(name, DataSheetName)
	})
	if dataSheet == "" {
		return sheet, iolist.ErrEmptyDocument
	}

	rows, err := book.GetRows(dataSheet)
	if err != nil {
		return sheet, fmt.Errorf("excel: read %s: %w", dataSheet, err)
	}
	if len(rows) == 0 {
		return sheet, iolist.ErrEmptyDocument
	}
	sheet.Columns = rows[0]
	sheet.Rows = rows[1:]

	deviceSheet := findSheet(book, func(name string) bool {
		return !strings.EqualFold(name, dataSheet) &&
			strings.Contains(strings.ToLower(name), "device")
	})
	if deviceSheet != "" {
		devices, err := readDevices(book, deviceSheet)
		if err != nil {
			return sheet, err
		}
		sheet.Devices = devices
	}
	return sheet, nil
}

func findSheet(book *excelize.File, match func(string) bool) string {
	for _, name := range book.GetSheetList() {
		if match(name) {
			return name
		}
	}
	return ""
}

// readDevices scans the device sheet. Column positions are located by
// header cells containing "device" and "protocol"; a missing protocol
// column defaults every device to MQTT.
func readDevices(book *excelize.File, sheetName string) ([]application.SheetDevice, error) {
	rows, err := book.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("excel: read %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	nameCol, protocolCol := -1, -1
	for i, cell := range rows[0] {
		lowered := strings.ToLower(strings.TrimSpace(cell))
		if nameCol < 0 && strings.Contains(lowered, "device") {
			nameCol = i
		}
		if protocolCol < 0 && strings.Contains(lowered, "protocol") {
			protocolCol = i
		}
	}
	if nameCol < 0 {
		return nil, nil
	}

	var devices []application.SheetDevice
	for _, row := range rows[1:] {
		if nameCol >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}
		protocol := string(iolist.ProtocolMQTT)
		if protocolCol >= 0 && protocolCol < len(row) && strings.TrimSpace(row[protocolCol]) != "" {
			protocol = strings.TrimSpace(row[protocolCol])
		}
		devices = append(devices, application.SheetDevice{Name: name, Protocol: protocol})
	}
	return devices, nil
}
