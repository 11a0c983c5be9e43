package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one labelled value printed on a receipt.
type ReceiptLine struct {
	Label string
	Value string
}

// Receipt describes a printable payment acknowledgement.
type Receipt struct {
	Title    string
	Subtitle string
	Lines    []ReceiptLine
	Footer   string
}

// PDFExporter renders receipts into single page PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt draws the receipt as a two column table.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if len(r.Lines) == 0 {
		return nil, fmt.Errorf("receipt requires at least one line")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(r.Title), "", 1, "C", false, 0, "")
	if r.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, r.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	for _, line := range r.Lines {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 8, line.Label, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(120, 8, line.Value, "1", 1, "", false, 0, "")
	}

	if r.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, r.Footer, "", "C", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
