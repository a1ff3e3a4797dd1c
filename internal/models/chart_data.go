package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ChartDataType discriminates the two envelope variants.
type ChartDataType string

const (
	ChartDataClassReport   ChartDataType = "class_report"
	ChartDataSingleStudent ChartDataType = "single_student"
)

// Chart identifiers accepted in selectedCharts.
const (
	ChartAttendance  = "attendance"
	ChartSubjects    = "subjects"
	ChartGrades      = "grades"
	ChartPerformance = "performance"
	ChartMonthly     = "monthly"
	ChartProgress    = "progress"
)

var (
	// ErrChartDataType is returned when the envelope discriminator is missing or unknown.
	ErrChartDataType = errors.New("chart data type must be class_report or single_student")
	// ErrChartDataEmpty is returned for an absent envelope.
	ErrChartDataEmpty = errors.New("chart data is required")
)

// KnownCharts lists the chart ids of a variant in render order.
func KnownCharts(t ChartDataType) []string {
	switch t {
	case ChartDataClassReport:
		return []string{ChartAttendance, ChartSubjects, ChartGrades, ChartPerformance}
	case ChartDataSingleStudent:
		return []string{ChartAttendance, ChartSubjects, ChartMonthly, ChartProgress}
	default:
		return nil
	}
}

// AttendancePoint is one bar of a class attendance series.
type AttendancePoint struct {
	Name       string  `json:"name"`
	Attendance float64 `json:"attendance"`
}

// SubjectAverage is a class-wide subject average.
type SubjectAverage struct {
	Subject string  `json:"subject"`
	Avg     float64 `json:"avg"`
}

// GradeSlice is one grade bucket of the distribution pie.
type GradeSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// ScorePoint is a monthly score used by trend lines.
type ScorePoint struct {
	Month string  `json:"month"`
	Score float64 `json:"score"`
}

// StudentRow is a roster entry snapshotted into a class report.
type StudentRow struct {
	Name       string  `json:"name"`
	StudentID  string  `json:"studentId"`
	ClassName  string  `json:"className,omitempty"`
	Attendance float64 `json:"attendance"`
	Average    float64 `json:"average"`
}

// ClassSummary holds the executive summary figures of a class report.
type ClassSummary struct {
	TotalStudents  int     `json:"totalStudents"`
	AvgAttendance  float64 `json:"avgAttendance"`
	HighPerformers int     `json:"highPerformers"`
	LowAttendance  int     `json:"lowAttendance"`
}

// ClassReportData is the class_report envelope variant.
type ClassReportData struct {
	SelectedYear          string            `json:"selectedYear,omitempty"`
	SelectedCharts        []string          `json:"selectedCharts"`
	AttendanceData        []AttendancePoint `json:"attendanceData"`
	SubjectComparisonData []SubjectAverage  `json:"subjectComparisonData"`
	GradeData             []GradeSlice      `json:"gradeData"`
	PerformanceData       []ScorePoint      `json:"performanceData"`
	Students              []StudentRow      `json:"students"`
	Summary               ClassSummary      `json:"summary"`
	Description           string            `json:"description,omitempty"`
}

// NamedValue is a labelled count, e.g. Present/Absent.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SubjectMark is a student's raw mark in one subject.
type SubjectMark struct {
	Subject string  `json:"subject"`
	Marks   float64 `json:"marks"`
	OutOf   float64 `json:"outOf"`
}

// MonthlyAttendance is a student's attendance percentage for a month.
type MonthlyAttendance struct {
	Month      string  `json:"month"`
	Attendance float64 `json:"attendance"`
}

// CustomField is a free label/value pair added by the author.
type CustomField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SingleStudentData is the single_student envelope variant.
type SingleStudentData struct {
	StudentID         string              `json:"studentId"`
	StudentName       string              `json:"studentName"`
	StudentStudentID  string              `json:"studentStudentId"`
	SelectedCharts    []string            `json:"selectedCharts"`
	AttendanceData    []NamedValue        `json:"attendanceData"`
	SubjectMarks      []SubjectMark       `json:"subjectMarks"`
	MonthlyAttendance []MonthlyAttendance `json:"monthlyAttendance"`
	ProgressData      []ScorePoint        `json:"progressData"`
	CustomFields      []CustomField       `json:"customFields"`
	Description       string              `json:"description,omitempty"`
}

// ChartData is the tagged envelope stored with every report. Exactly one variant is set.
type ChartData struct {
	Type          ChartDataType
	ClassReport   *ClassReportData
	SingleStudent *SingleStudentData
}

// NewClassReportData wraps a class report payload.
func NewClassReportData(data ClassReportData) ChartData {
	return ChartData{Type: ChartDataClassReport, ClassReport: &data}
}

// NewSingleStudentData wraps a single student payload.
func NewSingleStudentData(data SingleStudentData) ChartData {
	return ChartData{Type: ChartDataSingleStudent, SingleStudent: &data}
}

// ParseChartData decodes and validates a raw envelope. The type discriminator is mandatory.
func ParseChartData(raw []byte) (ChartData, error) {
	if isNullJSON(raw) {
		return ChartData{}, ErrChartDataEmpty
	}
	var data ChartData
	if err := data.UnmarshalJSON(raw); err != nil {
		return ChartData{}, err
	}
	return data, nil
}

func isNullJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// SelectedCharts returns the author's allow-list of chart ids.
func (c ChartData) SelectedCharts() []string {
	switch c.Type {
	case ChartDataClassReport:
		if c.ClassReport != nil {
			return c.ClassReport.SelectedCharts
		}
	case ChartDataSingleStudent:
		if c.SingleStudent != nil {
			return c.SingleStudent.SelectedCharts
		}
	}
	return nil
}

// RenderedCharts returns selectedCharts intersected with the variant's known ids, in render order.
func (c ChartData) RenderedCharts() []string {
	selected := make(map[string]struct{})
	for _, id := range c.SelectedCharts() {
		selected[id] = struct{}{}
	}
	result := make([]string, 0, len(selected))
	for _, id := range KnownCharts(c.Type) {
		if _, ok := selected[id]; ok {
			result = append(result, id)
		}
	}
	return result
}

// Description returns the optional narrative carried by the envelope.
func (c ChartData) Description() string {
	switch {
	case c.ClassReport != nil:
		return c.ClassReport.Description
	case c.SingleStudent != nil:
		return c.SingleStudent.Description
	default:
		return ""
	}
}

// Validate checks that the discriminator matches the populated variant.
func (c ChartData) Validate() error {
	switch c.Type {
	case ChartDataClassReport:
		if c.ClassReport == nil || c.SingleStudent != nil {
			return fmt.Errorf("class_report envelope must carry class report data only")
		}
	case ChartDataSingleStudent:
		if c.SingleStudent == nil || c.ClassReport != nil {
			return fmt.Errorf("single_student envelope must carry single student data only")
		}
	case "":
		return ErrChartDataEmpty
	default:
		return ErrChartDataType
	}
	return nil
}

type classReportWire struct {
	Type ChartDataType `json:"type"`
	*ClassReportData
}

type singleStudentWire struct {
	Type ChartDataType `json:"type"`
	*SingleStudentData
}

// MarshalJSON flattens the active variant next to its type discriminator.
func (c ChartData) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ChartDataClassReport:
		data := c.ClassReport
		if data == nil {
			data = &ClassReportData{}
		}
		return json.Marshal(classReportWire{Type: c.Type, ClassReportData: data})
	case ChartDataSingleStudent:
		data := c.SingleStudent
		if data == nil {
			data = &SingleStudentData{}
		}
		return json.Marshal(singleStudentWire{Type: c.Type, SingleStudentData: data})
	case "":
		return []byte("null"), nil
	default:
		return nil, ErrChartDataType
	}
}

// UnmarshalJSON decodes the variant selected by the type discriminator. A JSON null
// yields the zero envelope, mirroring MarshalJSON; any other payload needs a known type.
func (c *ChartData) UnmarshalJSON(raw []byte) error {
	if isNullJSON(raw) {
		*c = ChartData{}
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	var head struct {
		Type ChartDataType `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return fmt.Errorf("decode chart data: %w", err)
	}
	switch head.Type {
	case ChartDataClassReport:
		var data ClassReportData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return fmt.Errorf("decode class_report chart data: %w", err)
		}
		*c = ChartData{Type: head.Type, ClassReport: &data}
	case ChartDataSingleStudent:
		var data SingleStudentData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return fmt.Errorf("decode single_student chart data: %w", err)
		}
		*c = ChartData{Type: head.Type, SingleStudent: &data}
	default:
		return ErrChartDataType
	}
	return nil
}

// Value marshals the envelope for JSONB persistence.
func (c ChartData) Value() (driver.Value, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal chart data: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column into the envelope.
func (c *ChartData) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = ChartData{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChartData", value)
	}
	return c.UnmarshalJSON(data)
}
