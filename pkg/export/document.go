package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// A4 portrait geometry in millimetres.
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	pageMargin    = 15.0
	contentWidth  = pageWidth - 2*pageMargin
	footerReserve = 18.0

	chartCardWidth      = 87.0
	chartCardHeight     = 72.0
	chartGap            = 6.0
	chartBreakThreshold = 80.0

	// RosterRowCap bounds the class roster table.
	RosterRowCap = 25

	fontFamily  = "Helvetica"
	noDataLabel = "No data available"
	dateLayout  = "January 2, 2006"
)

// SectionKind classifies document sections.
type SectionKind string

const (
	SectionHeader  SectionKind = "header"
	SectionSummary SectionKind = "summary"
	SectionText    SectionKind = "text"
	SectionChart   SectionKind = "chart"
	SectionTable   SectionKind = "table"
)

// Section records where a block landed in the document.
type Section struct {
	ID    string
	Title string
	Kind  SectionKind
	Page  int
	// Empty is set when a selected chart was drawn as the no-data placeholder.
	Empty bool
}

// Document is a rendered, paginated report.
type Document struct {
	Bytes     []byte
	PageCount int
	Sections  []Section
	// Degraded lists non-fatal render notes, e.g. selected charts without data.
	Degraded []string
	Footers  []string
}

// ChartSections returns the chart section ids in document order.
func (d *Document) ChartSections() []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		if s.Kind == SectionChart {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (Section, bool) {
	if d == nil {
		return Section{}, false
	}
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

type rgb struct{ r, g, b int }

var (
	colorInk     = rgb{33, 37, 41}
	colorMuted   = rgb{108, 117, 125}
	colorBorder  = rgb{206, 212, 218}
	colorBand    = rgb{30, 64, 124}
	colorSurface = rgb{241, 245, 249}
	colorWhite   = rgb{255, 255, 255}

	chartPalette = []rgb{
		{59, 130, 246},
		{16, 185, 129},
		{245, 158, 11},
		{239, 68, 68},
		{139, 92, 246},
		{236, 72, 153},
		{20, 184, 166},
		{107, 114, 128},
	}
)

func paletteColor(i int) rgb {
	return chartPalette[i%len(chartPalette)]
}

// parseHexColor accepts #RRGGBB or #RGB.
func parseHexColor(raw string) (rgb, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}

// canvas wraps the pdf with the manual pagination used by the report layout.
type canvas struct {
	pdf      *gofpdf.Fpdf
	tr       func(string) string
	sections []Section
	degraded []string
}

func newCanvas(pdf *gofpdf.Fpdf) *canvas {
	return &canvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *canvas) font(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *canvas) textColor(col rgb) { c.pdf.SetTextColor(col.r, col.g, col.b) }
func (c *canvas) fillColor(col rgb) { c.pdf.SetFillColor(col.r, col.g, col.b) }
func (c *canvas) drawColor(col rgb) { c.pdf.SetDrawColor(col.r, col.g, col.b) }

func (c *canvas) bottom() float64 {
	return pageHeight - footerReserve
}

func (c *canvas) remaining() float64 {
	return c.bottom() - c.pdf.GetY()
}

func (c *canvas) newPage() {
	c.pdf.AddPage()
	c.pdf.SetY(pageMargin)
}

// ensure starts a new page when fewer than h millimetres remain. It reports whether it broke.
func (c *canvas) ensure(h float64) bool {
	if c.remaining() < h {
		c.newPage()
		return true
	}
	return false
}

func (c *canvas) addSection(s Section) {
	s.Page = c.pdf.PageNo()
	c.sections = append(c.sections, s)
}

func (c *canvas) degrade(format string, args ...interface{}) {
	c.degraded = append(c.degraded, fmt.Sprintf(format, args...))
}

// text writes a translated string at x,y (baseline).
func (c *canvas) text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *canvas) textCentered(cx, y float64, s string) {
	t := c.tr(s)
	c.pdf.Text(cx-c.pdf.GetStringWidth(t)/2, y, t)
}

func (c *canvas) textRight(rx, y float64, s string) {
	t := c.tr(s)
	c.pdf.Text(rx-c.pdf.GetStringWidth(t), y, t)
}

// fit shortens s with an ellipsis until it fits in width w at the current font.
func (c *canvas) fit(s string, w float64) string {
	t := c.tr(s)
	if c.pdf.GetStringWidth(t) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if c.pdf.GetStringWidth(c.tr(candidate)) <= w {
			return candidate
		}
	}
	return ""
}

const headingHeight = 12.0

func (c *canvas) heading(title string) {
	c.ensure(headingHeight)
	c.pdf.Ln(2)
	c.font("B", 12)
	c.textColor(colorBand)
	y := c.pdf.GetY()
	c.text(pageMargin, y+5, title)
	c.drawColor(colorBorder)
	c.pdf.SetLineWidth(0.3)
	c.pdf.Line(pageMargin, y+7, pageMargin+contentWidth, y+7)
	c.pdf.SetY(y + 10)
	c.textColor(colorInk)
}

// paragraph line-wraps text to the content width, breaking pages per line.
func (c *canvas) paragraph(body string) {
	const lineHeight = 5.0
	c.font("", 10)
	c.textColor(colorInk)
	for _, para := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		lines := c.pdf.SplitLines([]byte(c.tr(para)), contentWidth)
		if len(lines) == 0 {
			lines = [][]byte{nil}
		}
		for _, line := range lines {
			c.ensure(lineHeight)
			y := c.pdf.GetY()
			c.pdf.Text(pageMargin, y+4, string(line))
			c.pdf.SetY(y + lineHeight)
		}
	}
	c.pdf.Ln(2)
}

// stampFooters is the second render pass: page count is final, so every page
// gets its "Page i of N" footer.
func (c *canvas) stampFooters(generatedAt time.Time, organization string) []string {
	total := c.pdf.PageCount()
	footers := make([]string, 0, total)
	dateLine := "Generated on " + generatedAt.Format(dateLayout)
	if organization != "" {
		dateLine = organization + " - " + dateLine
	}
	for page := 1; page <= total; page++ {
		c.pdf.SetPage(page)
		// Font state is tracked per document, not per page; force re-selection.
		c.font("B", 7)
		c.font("", 8)
		c.pdf.SetLineWidth(0.2)
		c.drawColor(colorBorder)
		c.fillColor(colorWhite)
		c.textColor(colorMuted)
		y := pageHeight - 12
		c.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
		label := fmt.Sprintf("Page %d of %d", page, total)
		c.text(pageMargin, y+5, dateLine)
		c.textRight(pageMargin+contentWidth, y+5, label)
		footers = append(footers, label)
	}
	return footers
}
