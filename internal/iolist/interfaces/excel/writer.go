package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	iolist "dp-manager/internal/iolist/domain"
)

// BuildWorkbook renders a header and its items back into an IO List
// workbook. The column layout of the first item's raw data is reused, so
// an export of an unmodified upload carries the original columns in the
// original order.
func BuildWorkbook(header *iolist.Header, items []*iolist.Item, devices []*iolist.Device) ([]byte, error) {
	book := excelize.NewFile()
	book.SetSheetName("Sheet1", DataSheetName)

	columns := iolist.RequiredColumns
	if len(items) > 0 {
		columns = items[0].Raw.Keys()
	}
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = book.SetCellValue(DataSheetName, cell, col)
	}
	for rowIdx, item := range items {
		for colIdx, col := range columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			_ = book.SetCellValue(DataSheetName, cell, item.Raw.Get(col))
		}
	}

	if len(devices) > 0 {
		deviceSheet := "Device"
		if _, err := book.NewSheet(deviceSheet); err != nil {
			return nil, err
		}
		_ = book.SetCellValue(deviceSheet, "A1", "Device Name")
		_ = book.SetCellValue(deviceSheet, "B1", "Protocol")
		for i, device := range devices {
			_ = book.SetCellValue(deviceSheet, fmt.Sprintf("A%d", i+2), device.Name)
			_ = book.SetCellValue(deviceSheet, fmt.Sprintf("B%d", i+2), string(device.Protocol))
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WorkbookFileName names an exported workbook after its header.
func WorkbookFileName(header *iolist.Header) string {
	return fmt.Sprintf("IOList_%s_%s_%s.xlsx", header.HullNo, header.IMO, header.DateKey)
}
