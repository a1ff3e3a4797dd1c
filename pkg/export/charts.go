package export

import (
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"
)

type chartKind string

const (
	chartBar  chartKind = "bar"
	chartPie  chartKind = "pie"
	chartLine chartKind = "line"
)

const (
	barLabelRunes    = 8
	lineGridlines    = 4
	pieSegmentDegree = 4.0
)

type chartPoint struct {
	Label string
	Value float64
	Color *rgb
}

type chartSpec struct {
	ID     string
	Title  string
	Kind   chartKind
	Points []chartPoint
	Suffix string
}

// plot is the drawable area inside a chart card.
type plot struct {
	x, y, w, h float64
}

func truncateLabel(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func formatValue(v float64, suffix string) string {
	return fmt.Sprintf("%d%s", roundInt(v), suffix)
}

// drawCharts lays cards out two per row, breaking the page when a row would not fit.
func (c *canvas) drawCharts(specs []chartSpec) {
	if len(specs) == 0 {
		return
	}
	c.heading("Charts")
	var rowY float64
	for i, spec := range specs {
		col := i % 2
		if col == 0 {
			if i > 0 {
				c.pdf.SetY(rowY + chartCardHeight + chartGap)
			}
			c.ensure(chartBreakThreshold)
			rowY = c.pdf.GetY()
		}
		x := pageMargin + float64(col)*(chartCardWidth+chartGap)
		c.drawChartCard(spec, x, rowY)
	}
	c.pdf.SetY(rowY + chartCardHeight + chartGap)
}

func (c *canvas) drawChartCard(spec chartSpec, x, y float64) {
	c.pdf.SetLineWidth(0.3)
	c.drawColor(colorBorder)
	c.fillColor(colorWhite)
	c.pdf.Rect(x, y, chartCardWidth, chartCardHeight, "FD")

	c.font("B", 10)
	c.textColor(colorInk)
	c.text(x+4, y+7, c.fit(spec.Title, chartCardWidth-8))

	area := plot{x: x + 8, y: y + 14, w: chartCardWidth - 14, h: chartCardHeight - 28}
	empty := !hasChartData(spec)
	if empty {
		c.drawPlaceholder(x, y)
		c.degrade("chart %q selected without data", spec.ID)
	} else {
		switch spec.Kind {
		case chartBar:
			c.drawBarChart(spec, area)
		case chartPie:
			c.drawPieChart(spec, area)
		case chartLine:
			c.drawLineChart(spec, area)
		}
	}
	c.addSection(Section{ID: spec.ID, Title: spec.Title, Kind: SectionChart, Empty: empty})
}

func hasChartData(spec chartSpec) bool {
	if len(spec.Points) == 0 {
		return false
	}
	if spec.Kind == chartPie {
		return pieTotal(spec.Points) > 0
	}
	return true
}

func (c *canvas) drawPlaceholder(x, y float64) {
	c.font("I", 10)
	c.textColor(colorMuted)
	c.textCentered(x+chartCardWidth/2, y+chartCardHeight/2+2, noDataLabel)
	c.textColor(colorInk)
}

// drawBarChart scales bars to the series maximum (floored at 1).
func (c *canvas) drawBarChart(spec chartSpec, area plot) {
	maxValue := 1.0
	for _, p := range spec.Points {
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}
	baseline := area.y + area.h
	slot := area.w / float64(len(spec.Points))
	barWidth := slot * 0.6

	c.pdf.SetLineWidth(0.2)
	c.drawColor(colorBorder)
	c.pdf.Line(area.x, baseline, area.x+area.w, baseline)

	for i, p := range spec.Points {
		value := math.Max(p.Value, 0)
		height := value / maxValue * area.h
		bx := area.x + float64(i)*slot + (slot-barWidth)/2
		col := paletteColor(i)
		if p.Color != nil {
			col = *p.Color
		}
		c.fillColor(col)
		if height > 0 {
			c.pdf.Rect(bx, baseline-height, barWidth, height, "F")
		}

		c.font("B", 6.5)
		c.textColor(colorInk)
		c.textCentered(bx+barWidth/2, baseline-height-1.5, formatValue(p.Value, spec.Suffix))

		c.font("", 6)
		c.textColor(colorMuted)
		c.textCentered(bx+barWidth/2, baseline+4, truncateLabel(p.Label, barLabelRunes))
	}
	c.textColor(colorInk)
}

func pieTotal(points []chartPoint) float64 {
	total := 0.0
	for _, p := range points {
		if p.Value > 0 {
			total += p.Value
		}
	}
	return total
}

// drawPieChart draws proportional wedges for non-zero entries plus a percentage legend.
func (c *canvas) drawPieChart(spec chartSpec, area plot) {
	total := pieTotal(spec.Points)
	radius := math.Min(area.w*0.26, area.h/2)
	cx := area.x + radius + 1
	cy := area.y + area.h/2 + 2

	type slice struct {
		point chartPoint
		color rgb
	}
	slices := make([]slice, 0, len(spec.Points))
	for i, p := range spec.Points {
		if p.Value <= 0 {
			continue
		}
		col := paletteColor(i)
		if p.Color != nil {
			col = *p.Color
		}
		slices = append(slices, slice{point: p, color: col})
	}

	start := -90.0
	for _, s := range slices {
		sweep := s.point.Value / total * 360
		c.fillColor(s.color)
		if len(slices) == 1 {
			c.pdf.Circle(cx, cy, radius, "F")
		} else {
			c.pdf.Polygon(wedge(cx, cy, radius, start, sweep), "F")
		}
		start += sweep
	}

	legendX := cx + radius + 5
	legendY := area.y + 2
	maxRows := int((area.h + 8) / 5)
	for i, s := range slices {
		rowY := legendY + float64(i)*5
		if i == maxRows-1 && len(slices) > maxRows {
			c.font("I", 6.5)
			c.textColor(colorMuted)
			c.text(legendX, rowY+2.5, fmt.Sprintf("+%d more", len(slices)-i))
			break
		}
		c.fillColor(s.color)
		c.pdf.Rect(legendX, rowY, 3, 3, "F")
		c.font("", 6.5)
		c.textColor(colorInk)
		pct := s.point.Value / total * 100
		label := fmt.Sprintf("%s: %.1f%%", s.point.Label, pct)
		c.text(legendX+4.5, rowY+2.5, c.fit(label, area.x+area.w+4-legendX-4.5))
	}
	c.textColor(colorInk)
}

func wedge(cx, cy, r, startDeg, sweepDeg float64) []gofpdf.PointType {
	steps := int(math.Ceil(sweepDeg / pieSegmentDegree))
	if steps < 1 {
		steps = 1
	}
	points := make([]gofpdf.PointType, 0, steps+2)
	points = append(points, gofpdf.PointType{X: cx, Y: cy})
	for i := 0; i <= steps; i++ {
		angle := (startDeg + sweepDeg*float64(i)/float64(steps)) * math.Pi / 180
		points = append(points, gofpdf.PointType{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)})
	}
	return points
}

// lineScale returns the y-axis bounds: observed max over a floor of 0 unless values go negative.
func lineScale(points []chartPoint) (lo, hi float64) {
	lo, hi = 0, math.Inf(-1)
	for _, p := range points {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func (c *canvas) drawLineChart(spec chartSpec, area plot) {
	lo, hi := lineScale(spec.Points)
	span := hi - lo
	baseline := area.y + area.h

	c.pdf.SetLineWidth(0.1)
	for g := 0; g <= lineGridlines; g++ {
		gy := baseline - float64(g)/lineGridlines*area.h
		c.drawColor(colorBorder)
		c.pdf.Line(area.x, gy, area.x+area.w, gy)
		c.font("", 5.5)
		c.textColor(colorMuted)
		c.textRight(area.x-1, gy+1, formatValue(lo+span*float64(g)/lineGridlines, ""))
	}

	slot := area.w / float64(len(spec.Points))
	xs := make([]float64, len(spec.Points))
	ys := make([]float64, len(spec.Points))
	for i, p := range spec.Points {
		xs[i] = area.x + (float64(i)+0.5)*slot
		ys[i] = baseline - (p.Value-lo)/span*area.h
	}

	col := paletteColor(0)
	c.pdf.SetLineWidth(0.6)
	c.drawColor(col)
	for i := 1; i < len(xs); i++ {
		c.pdf.Line(xs[i-1], ys[i-1], xs[i], ys[i])
	}
	for i, p := range spec.Points {
		c.fillColor(col)
		c.pdf.Circle(xs[i], ys[i], 0.9, "F")
		c.font("B", 6)
		c.textColor(colorInk)
		c.textCentered(xs[i], ys[i]-2, formatValue(p.Value, spec.Suffix))
		c.font("", 6)
		c.textColor(colorMuted)
		c.textCentered(xs[i], baseline+4, truncateLabel(p.Label, barLabelRunes))
	}
	c.pdf.SetLineWidth(0.2)
	c.textColor(colorInk)
}
