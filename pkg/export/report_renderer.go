package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// ErrInvalidReport is returned for input the renderer cannot lay out at all.
var ErrInvalidReport = errors.New("report cannot be rendered")

// RenderOptions carries everything the renderer would otherwise read from the environment.
type RenderOptions struct {
	GeneratedBy     string
	GeneratedByRole models.UserRole
	// GeneratedAt drives the header, footer and PDF creation date. Zero falls back to the report's CreatedAt.
	GeneratedAt  time.Time
	Organization string
	// Uncompressed disables stream compression, which keeps page text greppable.
	Uncompressed bool
}

// ReportRenderer turns a stored report into a paginated A4 document.
type ReportRenderer struct {
	organization string
}

// NewReportRenderer constructs a renderer stamping the given organization in footers.
func NewReportRenderer(organization string) *ReportRenderer {
	return &ReportRenderer{organization: organization}
}

// Render lays out the report. It performs no I/O, and identical inputs yield identical bytes.
func (r *ReportRenderer) Render(report *models.Report, opts RenderOptions) (doc *Document, err error) {
	if report == nil {
		return nil, fmt.Errorf("%w: nil report", ErrInvalidReport)
	}
	if report.ChartData.Type != "" {
		if verr := report.ChartData.Validate(); verr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, verr)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("render report %s: %v", report.ID, rec)
		}
	}()

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = report.CreatedAt
	}
	organization := opts.Organization
	if organization == "" {
		organization = r.organization
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetTitle(report.Title, true)
	pdf.SetCreator(organization, true)

	c := newCanvas(pdf)
	c.newPage()

	c.drawHeader(report, opts, generatedAt)
	switch report.ChartData.Type {
	case models.ChartDataClassReport:
		data := report.ChartData.ClassReport
		c.drawSummary(classSummary(data))
		c.drawFreeText(report.Content, data.Description)
		c.drawCharts(classChartSpecs(data, report.ChartData.RenderedCharts()))
		if len(data.Students) > 0 {
			c.drawTable(rosterTable(data.Students))
		}
	case models.ChartDataSingleStudent:
		data := report.ChartData.SingleStudent
		c.drawStudentBlock(data)
		c.drawFreeText(report.Content, data.Description)
		c.drawCharts(studentChartSpecs(data, report.ChartData.RenderedCharts()))
		if len(data.SubjectMarks) > 0 {
			c.drawTable(marksTable(data.SubjectMarks))
		}
		if len(data.CustomFields) > 0 {
			c.drawTable(customFieldsTable(data.CustomFields))
		}
	default:
		c.drawFreeText(report.Content, "")
	}

	footers := c.stampFooters(generatedAt, organization)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("output pdf: %w", err)
	}

	return &Document{
		Bytes:     buf.Bytes(),
		PageCount: pdf.PageCount(),
		Sections:  c.sections,
		Degraded:  c.degraded,
		Footers:   footers,
	}, nil
}

func statusLabel(s models.ReportStatus) string {
	switch s {
	case models.ReportStatusDraft:
		return "Draft"
	case models.ReportStatusSubmittedToHOD:
		return "Submitted to HOD"
	case models.ReportStatusSubmittedToPrincipal:
		return "Submitted to Principal"
	case models.ReportStatusApproved:
		return "Approved"
	default:
		return "N/A"
	}
}

func roleLabel(role models.UserRole) string {
	switch role {
	case models.RoleTeacher:
		return "Teacher"
	case models.RoleHOD:
		return "Head of Department"
	case models.RolePrincipal:
		return "Principal"
	default:
		return ""
	}
}

func (c *canvas) drawHeader(report *models.Report, opts RenderOptions, generatedAt time.Time) {
	const bandHeight = 30.0
	c.fillColor(colorBand)
	c.pdf.Rect(0, 0, pageWidth, bandHeight, "F")

	c.font("B", 18)
	c.pdf.SetTextColor(colorWhite.r, colorWhite.g, colorWhite.b)
	title := strings.TrimSpace(report.Title)
	if title == "" {
		title = "Untitled Report"
	}
	c.text(pageMargin, 13, c.fit(title, contentWidth))

	c.font("", 9)
	generator := orNA(strings.TrimSpace(opts.GeneratedBy))
	if label := roleLabel(opts.GeneratedByRole); label != "" {
		generator += " (" + label + ")"
	}
	c.text(pageMargin, 21, "Generated by "+generator)
	c.textRight(pageMargin+contentWidth, 21, generatedAt.Format(dateLayout))
	c.text(pageMargin, 26, "Status: "+statusLabel(report.Status))
	if year := reportYear(report.ChartData); year != "" {
		c.textRight(pageMargin+contentWidth, 26, "Academic Year "+year)
	}

	c.textColor(colorInk)
	c.pdf.SetY(bandHeight + 6)
	c.addSection(Section{ID: "header", Title: title, Kind: SectionHeader})
}

func reportYear(data models.ChartData) string {
	if data.ClassReport != nil {
		return data.ClassReport.SelectedYear
	}
	return ""
}

// summaryFigures are the executive summary numbers.
type summaryFigures struct {
	TotalStudents  int
	AvgAttendance  int
	HighPerformers int
	LowAttendance  int
}

// classSummary derives the figures from the roster when present, else trusts the stored summary.
func classSummary(data *models.ClassReportData) summaryFigures {
	if len(data.Students) == 0 {
		return summaryFigures{
			TotalStudents:  data.Summary.TotalStudents,
			AvgAttendance:  roundInt(data.Summary.AvgAttendance),
			HighPerformers: data.Summary.HighPerformers,
			LowAttendance:  data.Summary.LowAttendance,
		}
	}
	var out summaryFigures
	var attendance float64
	for _, s := range data.Students {
		attendance += s.Attendance
		if s.Average >= HighPerformerThreshold {
			out.HighPerformers++
		}
		if s.Attendance < LowAttendanceThreshold {
			out.LowAttendance++
		}
	}
	out.TotalStudents = len(data.Students)
	out.AvgAttendance = roundInt(average(attendance, len(data.Students)))
	return out
}

func (c *canvas) drawSummary(f summaryFigures) {
	const (
		cardWidth  = 42.0
		cardHeight = 22.0
		cardGap    = (contentWidth - 4*cardWidth) / 3
	)
	c.heading("Executive Summary")
	c.ensure(cardHeight + 4)
	y := c.pdf.GetY()
	cards := []struct {
		label string
		value string
	}{
		{"Total Students", fmt.Sprintf("%d", f.TotalStudents)},
		{"Average Attendance", fmt.Sprintf("%d%%", f.AvgAttendance)},
		{"High Performers", fmt.Sprintf("%d", f.HighPerformers)},
		{"Low Attendance", fmt.Sprintf("%d", f.LowAttendance)},
	}
	for i, card := range cards {
		x := pageMargin + float64(i)*(cardWidth+cardGap)
		c.fillColor(colorSurface)
		c.drawColor(colorBorder)
		c.pdf.SetLineWidth(0.3)
		c.pdf.Rect(x, y, cardWidth, cardHeight, "FD")
		c.font("B", 16)
		c.textColor(colorBand)
		c.textCentered(x+cardWidth/2, y+11, card.value)
		c.font("", 8)
		c.textColor(colorMuted)
		c.textCentered(x+cardWidth/2, y+18, card.label)
	}
	c.textColor(colorInk)
	c.pdf.SetY(y + cardHeight + 4)
	c.addSection(Section{ID: "summary", Title: "Executive Summary", Kind: SectionSummary})
}

func (c *canvas) drawStudentBlock(data *models.SingleStudentData) {
	c.heading("Student Information")
	c.ensure(14)
	y := c.pdf.GetY()
	c.font("B", 10)
	c.text(pageMargin, y+4, "Name:")
	c.text(pageMargin+90, y+4, "Student ID:")
	c.font("", 10)
	c.text(pageMargin+22, y+4, c.fit(orNA(data.StudentName), 66))
	c.text(pageMargin+112, y+4, c.fit(orNA(data.StudentStudentID), 66))
	c.pdf.SetY(y + 10)
	c.addSection(Section{ID: "student", Title: "Student Information", Kind: SectionText})
}

func (c *canvas) drawFreeText(content *string, description string) {
	var parts []string
	if content != nil && strings.TrimSpace(*content) != "" {
		parts = append(parts, strings.TrimSpace(*content))
	}
	if d := strings.TrimSpace(description); d != "" {
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return
	}
	c.heading("Overview")
	c.addSection(Section{ID: "overview", Title: "Overview", Kind: SectionText})
	for _, p := range parts {
		c.paragraph(p)
	}
}

var classChartCatalog = map[string]struct {
	title string
	kind  chartKind
}{
	models.ChartAttendance:  {"Attendance Analysis", chartBar},
	models.ChartSubjects:    {"Subject Comparison", chartBar},
	models.ChartGrades:      {"Grade Distribution", chartPie},
	models.ChartPerformance: {"Performance Trend", chartLine},
}

var studentChartCatalog = map[string]struct {
	title string
	kind  chartKind
}{
	models.ChartAttendance: {"Attendance Overview", chartPie},
	models.ChartSubjects:   {"Subject-wise Performance", chartBar},
	models.ChartMonthly:    {"Monthly Attendance", chartBar},
	models.ChartProgress:   {"Progress Trend", chartLine},
}

// ChartTitle returns the section title a chart id renders under for the variant.
func ChartTitle(t models.ChartDataType, id string) string {
	switch t {
	case models.ChartDataClassReport:
		return classChartCatalog[id].title
	case models.ChartDataSingleStudent:
		return studentChartCatalog[id].title
	default:
		return ""
	}
}

func classChartSpecs(data *models.ClassReportData, ids []string) []chartSpec {
	specs := make([]chartSpec, 0, len(ids))
	for _, id := range ids {
		meta := classChartCatalog[id]
		spec := chartSpec{ID: id, Title: meta.title, Kind: meta.kind}
		switch id {
		case models.ChartAttendance:
			spec.Suffix = "%"
			for _, p := range data.AttendanceData {
				spec.Points = append(spec.Points, chartPoint{Label: p.Name, Value: p.Attendance})
			}
		case models.ChartSubjects:
			for _, p := range data.SubjectComparisonData {
				spec.Points = append(spec.Points, chartPoint{Label: p.Subject, Value: p.Avg})
			}
		case models.ChartGrades:
			for _, p := range data.GradeData {
				point := chartPoint{Label: p.Name, Value: p.Value}
				if col, ok := parseHexColor(p.Color); ok {
					point.Color = &col
				}
				spec.Points = append(spec.Points, point)
			}
		case models.ChartPerformance:
			for _, p := range data.PerformanceData {
				spec.Points = append(spec.Points, chartPoint{Label: p.Month, Value: p.Score})
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func studentChartSpecs(data *models.SingleStudentData, ids []string) []chartSpec {
	specs := make([]chartSpec, 0, len(ids))
	for _, id := range ids {
		meta := studentChartCatalog[id]
		spec := chartSpec{ID: id, Title: meta.title, Kind: meta.kind}
		switch id {
		case models.ChartAttendance:
			for _, p := range data.AttendanceData {
				spec.Points = append(spec.Points, chartPoint{Label: p.Name, Value: p.Value})
			}
		case models.ChartSubjects:
			spec.Suffix = "%"
			for _, m := range data.SubjectMarks {
				spec.Points = append(spec.Points, chartPoint{Label: m.Subject, Value: float64(Percentage(m.Marks, m.OutOf))})
			}
		case models.ChartMonthly:
			spec.Suffix = "%"
			for _, p := range data.MonthlyAttendance {
				spec.Points = append(spec.Points, chartPoint{Label: p.Month, Value: p.Attendance})
			}
		case models.ChartProgress:
			for _, p := range data.ProgressData {
				spec.Points = append(spec.Points, chartPoint{Label: p.Month, Value: p.Score})
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
