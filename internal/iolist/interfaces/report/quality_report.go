package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	iolist "dp-manager/internal/iolist/domain"
)

// BuildQualityPDF renders a data quality report for one header: its
// identity, the item count and one table row per flagged item.
func BuildQualityPDF(header *iolist.Header, items []*iolist.Item) ([]byte, error) {
	if header == nil {
		return nil, iolist.ErrHeaderNotFound
	}

	var duplicateChannel, duplicateDescription, duplicateTag, missingRequired int
	var flagged []*iolist.Item
	for _, item := range items {
		hit := false
		if item.IsDuplicateDataChannelID {
			duplicateChannel++
			hit = true
		}
		if item.IsDuplicateDescription {
			duplicateDescription++
			hit = true
		}
		if item.IsDuplicateMQTTTag {
			duplicateTag++
			hit = true
		}
		if item.HasMissingRequired {
			missingRequired++
			hit = true
		}
		if hit {
			flagged = append(flagged, item)
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "IO List Quality Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Hull No: %s", header.HullNo))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("IMO: %s", header.IMO))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Uploaded: %s (%s)", header.DateKey, header.FileName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Items: %d", len(items)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duplicate data channel ids: %d", duplicateChannel))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duplicate descriptions: %d", duplicateDescription))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duplicate MQTT tags: %d", duplicateTag))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Missing required values: %d", missingRequired))
	pdf.Ln(8)

	if len(flagged) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(20, 6, "Item", "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, "Data Channel ID", "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, "Flags", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, item := range flagged {
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", item.ID), "1", 0, "R", false, 0, "")
			pdf.CellFormat(80, 6, item.DataChannelID, "1", 0, "L", false, 0, "")
			pdf.CellFormat(90, 6, flagSummary(item), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flagSummary(item *iolist.Item) string {
	var flags []byte
	add := func(set bool, label string) {
		if !set {
			return
		}
		if len(flags) > 0 {
			flags = append(flags, ", "...)
		}
		flags = append(flags, label...)
	}
	add(item.IsDuplicateDataChannelID, "dup channel id")
	add(item.IsDuplicateDescription, "dup description")
	add(item.IsDuplicateMQTTTag, "dup mqtt tag")
	add(item.HasMissingRequired, "missing required")
	return string(flags)
}

// ReportFileName names an exported quality report after its header.
func ReportFileName(header *iolist.Header) string {
	return fmt.Sprintf("Quality_%s_%s_%s.pdf", header.HullNo, header.IMO, header.DateKey)
}
