package service

import (
	"strings"

	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/pkg/export"
)

// gradeColors keeps the distribution pie stable across reports.
var gradeColors = map[string]string{
	"A+": "#10B981",
	"A":  "#3B82F6",
	"B+": "#6366F1",
	"B":  "#F59E0B",
	"C":  "#F97316",
	"D":  "#EF4444",
	"F":  "#6B7280",
}

var gradeOrder = []string{"A+", "A", "B+", "B", "C", "D", "F"}

// EnvelopeBuilder computes chart-data envelopes from student snapshots.
type EnvelopeBuilder struct{}

// BuildClassReport aggregates a class roster into a class_report envelope.
func (EnvelopeBuilder) BuildClassReport(year string, charts []string, students []models.StudentSnapshot) models.ChartData {
	data := models.ClassReportData{
		SelectedYear:          strings.TrimSpace(year),
		SelectedCharts:        normalizeCharts(models.ChartDataClassReport, charts),
		AttendanceData:        []models.AttendancePoint{},
		SubjectComparisonData: []models.SubjectAverage{},
		GradeData:             []models.GradeSlice{},
		PerformanceData:       []models.ScorePoint{},
		Students:              make([]models.StudentRow, 0, len(students)),
	}

	monthly := newOrderedMean()
	subjects := newOrderedMean()
	scores := newOrderedMean()
	gradeCounts := make(map[string]int)
	var attendanceSum float64

	for _, s := range students {
		rate := s.AttendanceRate()
		avg := studentAverage(s.Subjects)
		data.Students = append(data.Students, models.StudentRow{
			Name:       s.Name,
			StudentID:  s.StudentNumber,
			ClassName:  s.ClassName,
			Attendance: rate,
			Average:    avg,
		})
		attendanceSum += rate
		if avg >= export.HighPerformerThreshold {
			data.Summary.HighPerformers++
		}
		if rate < export.LowAttendanceThreshold {
			data.Summary.LowAttendance++
		}
		if len(s.Subjects) > 0 {
			gradeCounts[export.GradeFor(roundPercent(avg)).Letter]++
		}
		for _, m := range s.MonthlyAttendance {
			monthly.add(m.Month, m.Attendance)
		}
		for _, m := range s.Subjects {
			subjects.add(m.Subject, float64(export.Percentage(m.Marks, m.OutOf)))
		}
		for _, p := range s.Scores {
			scores.add(p.Month, p.Score)
		}
	}

	data.Summary.TotalStudents = len(students)
	if len(students) > 0 {
		data.Summary.AvgAttendance = attendanceSum / float64(len(students))
	}
	for _, e := range monthly.entries() {
		data.AttendanceData = append(data.AttendanceData, models.AttendancePoint{Name: e.key, Attendance: e.mean})
	}
	for _, e := range subjects.entries() {
		data.SubjectComparisonData = append(data.SubjectComparisonData, models.SubjectAverage{Subject: e.key, Avg: e.mean})
	}
	for _, e := range scores.entries() {
		data.PerformanceData = append(data.PerformanceData, models.ScorePoint{Month: e.key, Score: e.mean})
	}
	for _, letter := range gradeOrder {
		if n := gradeCounts[letter]; n > 0 {
			data.GradeData = append(data.GradeData, models.GradeSlice{Name: letter, Value: float64(n), Color: gradeColors[letter]})
		}
	}
	return models.NewClassReportData(data)
}

// BuildSingleStudent snapshots one student into a single_student envelope.
func (EnvelopeBuilder) BuildSingleStudent(student models.StudentSnapshot, charts []string, customFields []models.CustomField) models.ChartData {
	data := models.SingleStudentData{
		StudentID:        student.ID,
		StudentName:      student.Name,
		StudentStudentID: student.StudentNumber,
		SelectedCharts:   normalizeCharts(models.ChartDataSingleStudent, charts),
		AttendanceData: []models.NamedValue{
			{Name: "Present", Value: float64(student.DaysPresent)},
			{Name: "Absent", Value: float64(student.DaysAbsent)},
			{Name: "Late", Value: float64(student.DaysLate)},
		},
		SubjectMarks:      append([]models.SubjectMark{}, student.Subjects...),
		MonthlyAttendance: append([]models.MonthlyAttendance{}, student.MonthlyAttendance...),
		ProgressData:      append([]models.ScorePoint{}, student.Scores...),
		CustomFields:      make([]models.CustomField, 0, len(customFields)),
	}
	for _, f := range customFields {
		if strings.TrimSpace(f.Label) == "" {
			continue
		}
		data.CustomFields = append(data.CustomFields, f)
	}
	return models.NewSingleStudentData(data)
}

// normalizeCharts keeps known ids once each, in the order the author picked them.
func normalizeCharts(t models.ChartDataType, charts []string) []string {
	known := make(map[string]struct{})
	for _, id := range models.KnownCharts(t) {
		known[id] = struct{}{}
	}
	out := make([]string, 0, len(charts))
	seen := make(map[string]struct{})
	for _, id := range charts {
		id = strings.TrimSpace(id)
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func studentAverage(marks []models.SubjectMark) float64 {
	if len(marks) == 0 {
		return 0
	}
	var sum float64
	for _, m := range marks {
		sum += float64(export.Percentage(m.Marks, m.OutOf))
	}
	return sum / float64(len(marks))
}

func roundPercent(v float64) int {
	return export.Percentage(v, 100)
}

type meanEntry struct {
	key  string
	sum  float64
	n    int
	mean float64
}

// orderedMean averages values per key, remembering first-seen key order.
type orderedMean struct {
	index map[string]int
	items []meanEntry
}

func newOrderedMean() *orderedMean {
	return &orderedMean{index: make(map[string]int)}
}

func (o *orderedMean) add(key string, value float64) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	i, ok := o.index[key]
	if !ok {
		i = len(o.items)
		o.index[key] = i
		o.items = append(o.items, meanEntry{key: key})
	}
	o.items[i].sum += value
	o.items[i].n++
}

func (o *orderedMean) entries() []meanEntry {
	out := make([]meanEntry, len(o.items))
	for i, e := range o.items {
		e.mean = e.sum / float64(e.n)
		out[i] = e
	}
	return out
}
