package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a paginated tabular PDF sharing the report layout.
type PDFExporter struct {
	organization string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(organization string) *PDFExporter {
	return &PDFExporter{organization: organization}
}

// Render creates a PDF with a title band, the dataset table and page footers.
func (e *PDFExporter) Render(data Dataset, title string, generatedAt time.Time) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)

	c := newCanvas(pdf)
	c.newPage()

	c.font("B", 14)
	c.textColor(colorBand)
	c.text(pageMargin, pageMargin+5, c.fit(title, contentWidth))
	c.font("", 9)
	c.textColor(colorMuted)
	c.text(pageMargin, pageMargin+11, fmt.Sprintf("%d records", len(data.Rows)))
	c.pdf.SetY(pageMargin + 14)

	width := contentWidth / float64(len(data.Headers))
	columns := make([]column, len(data.Headers))
	for i, header := range data.Headers {
		columns[i] = column{header: header, width: width}
	}
	c.drawTable(table{id: "register", title: "Register", columns: columns, rows: data.Rows})
	c.stampFooters(generatedAt, e.organization)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
