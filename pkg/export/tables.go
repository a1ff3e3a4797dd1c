package export

import (
	"fmt"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

const (
	tableRowHeight    = 7.0
	tableHeaderHeight = 8.0
)

type column struct {
	header string
	width  float64
	align  string
}

type table struct {
	id      string
	title   string
	columns []column
	rows    [][]string
	footer  [][]string
	note    string
}

// drawTable writes a bordered table, repeating the header row after each page break.
func (c *canvas) drawTable(t table) {
	c.ensure(headingHeight + tableHeaderHeight + tableRowHeight)
	c.heading(t.title)
	c.addSection(Section{ID: t.id, Title: t.title, Kind: SectionTable})
	c.tableHeader(t.columns)
	for _, row := range t.rows {
		if c.ensure(tableRowHeight) {
			c.tableHeader(t.columns)
		}
		c.tableRow(t.columns, row, "", colorWhite)
	}
	for _, row := range t.footer {
		if c.ensure(tableRowHeight) {
			c.tableHeader(t.columns)
		}
		c.tableRow(t.columns, row, "B", colorSurface)
	}
	if t.note != "" {
		c.ensure(6)
		c.font("I", 8)
		c.textColor(colorMuted)
		y := c.pdf.GetY()
		c.text(pageMargin, y+4, t.note)
		c.pdf.SetY(y + 6)
		c.textColor(colorInk)
	}
	c.pdf.Ln(3)
}

func (c *canvas) tableHeader(columns []column) {
	c.font("B", 9)
	c.fillColor(colorBand)
	c.drawColor(colorBand)
	c.pdf.SetTextColor(colorWhite.r, colorWhite.g, colorWhite.b)
	c.pdf.SetX(pageMargin)
	for _, col := range columns {
		c.pdf.CellFormat(col.width, tableHeaderHeight, c.tr(col.header), "1", 0, "C", true, 0, "")
	}
	c.pdf.Ln(-1)
	c.textColor(colorInk)
}

func (c *canvas) tableRow(columns []column, row []string, style string, fill rgb) {
	c.font(style, 9)
	c.fillColor(fill)
	c.drawColor(colorBorder)
	c.textColor(colorInk)
	c.pdf.SetX(pageMargin)
	for i, col := range columns {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		align := col.align
		if align == "" {
			align = "L"
		}
		c.pdf.CellFormat(col.width, tableRowHeight, c.tr(c.fit(value, col.width-2)), "1", 0, align, true, 0, "")
	}
	c.pdf.Ln(-1)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func rosterTable(students []models.StudentRow) table {
	t := table{
		id:    "roster",
		title: "Student Roster",
		columns: []column{
			{header: "#", width: 12, align: "C"},
			{header: "Name", width: 58},
			{header: "Student ID", width: 34},
			{header: "Class", width: 28},
			{header: "Attendance", width: 24, align: "R"},
			{header: "Average", width: 24, align: "R"},
		},
	}
	shown := students
	if len(shown) > RosterRowCap {
		shown = shown[:RosterRowCap]
		t.note = fmt.Sprintf("Showing %d of %d students", RosterRowCap, len(students))
	}
	for i, s := range shown {
		t.rows = append(t.rows, []string{
			fmt.Sprintf("%d", i+1),
			orNA(s.Name),
			orNA(s.StudentID),
			orNA(s.ClassName),
			fmt.Sprintf("%d%%", roundInt(s.Attendance)),
			fmt.Sprintf("%d", roundInt(s.Average)),
		})
	}
	return t
}

// marksTable lists per-subject marks with a Total and Average footer.
func marksTable(marks []models.SubjectMark) table {
	t := table{
		id:    "marks",
		title: "Subject Marks",
		columns: []column{
			{header: "Subject", width: 50},
			{header: "Marks", width: 22, align: "R"},
			{header: "Out Of", width: 22, align: "R"},
			{header: "Percentage", width: 26, align: "R"},
			{header: "Grade", width: 18, align: "C"},
			{header: "Remark", width: 42},
		},
	}
	var totalMarks, totalOutOf float64
	for _, m := range marks {
		pct := Percentage(m.Marks, m.OutOf)
		grade := GradeFor(pct)
		t.rows = append(t.rows, []string{
			orNA(m.Subject),
			fmt.Sprintf("%d", roundInt(m.Marks)),
			fmt.Sprintf("%d", roundInt(m.OutOf)),
			fmt.Sprintf("%d%%", pct),
			grade.Letter,
			grade.Remark,
		})
		totalMarks += m.Marks
		totalOutOf += m.OutOf
	}
	overall := Percentage(totalMarks, totalOutOf)
	overallGrade := GradeFor(overall)
	t.footer = [][]string{
		{"Total", fmt.Sprintf("%d", roundInt(totalMarks)), fmt.Sprintf("%d", roundInt(totalOutOf)), fmt.Sprintf("%d%%", overall), overallGrade.Letter, overallGrade.Remark},
		{"Average", fmt.Sprintf("%d", roundInt(average(totalMarks, len(marks)))), fmt.Sprintf("%d", roundInt(average(totalOutOf, len(marks)))), "", "", ""},
	}
	return t
}

func customFieldsTable(fields []models.CustomField) table {
	t := table{
		id:    "custom_fields",
		title: "Additional Information",
		columns: []column{
			{header: "Field", width: 60},
			{header: "Value", width: 120},
		},
	}
	for _, f := range fields {
		t.rows = append(t.rows, []string{orNA(f.Label), orNA(f.Value)})
	}
	return t
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
