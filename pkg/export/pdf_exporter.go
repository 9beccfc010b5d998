package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMarginMM = 10.0
	pageBottomMM = 15.0
	cellPadMM    = 3.0
)

// PDFExporter renders datasets into a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the dataset out as a table. Wide tables switch to landscape and
// columns are sized to their content, scaled down to the printable width.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) > 6 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMarginMM, 15, pageMarginMM)
	pdf.SetAutoPageBreak(true, pageBottomMM)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pageWidth, _ := pdf.GetPageSize()
	widths := columnWidths(pdf, tr, data, pageWidth-2*pageMarginMM)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()
	_, pageHeight := pdf.GetPageSize()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-pageBottomMM {
			pdf.AddPage()
			header()
		}
		for i, value := range fitRow(row, len(data.Headers)) {
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Summary) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		for _, line := range data.Summary {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(pdf *gofpdf.Fpdf, tr func(string) string, data Dataset, available float64) []float64 {
	widths := make([]float64, len(data.Headers))
	pdf.SetFont("Arial", "B", 9)
	for i, h := range data.Headers {
		widths[i] = pdf.GetStringWidth(tr(h)) + cellPadMM
	}
	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, value := range fitRow(row, len(data.Headers)) {
			if w := pdf.GetStringWidth(tr(value)) + cellPadMM; w > widths[i] {
				widths[i] = w
			}
		}
	}
	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > available {
		scale := available / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}
