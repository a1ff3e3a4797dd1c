package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChartDataClassReport(t *testing.T) {
	raw := []byte(`{"type":"class_report","selectedCharts":["attendance"],"attendanceData":[{"name":"W1","attendance":90}]}`)

	data, err := ParseChartData(raw)
	require.NoError(t, err)
	require.Equal(t, ChartDataClassReport, data.Type)
	require.NotNil(t, data.ClassReport)
	require.Nil(t, data.SingleStudent)
	require.Equal(t, []AttendancePoint{{Name: "W1", Attendance: 90}}, data.ClassReport.AttendanceData)
	require.NoError(t, data.Validate())
}

func TestParseChartDataSingleStudent(t *testing.T) {
	raw := []byte(`{"type":"single_student","studentName":"Ada","selectedCharts":["subjects","progress"],
		"subjectMarks":[{"subject":"Math","marks":85,"outOf":100}],"customFields":[{"label":"House","value":"Blue"}]}`)

	data, err := ParseChartData(raw)
	require.NoError(t, err)
	require.Equal(t, ChartDataSingleStudent, data.Type)
	require.Equal(t, "Ada", data.SingleStudent.StudentName)
	require.Equal(t, []string{ChartSubjects, ChartProgress}, data.RenderedCharts())
}

func TestParseChartDataRejectsMissingOrUnknownType(t *testing.T) {
	cases := map[string]string{
		"missing": `{"selectedCharts":["attendance"],"attendanceData":[]}`,
		"unknown": `{"type":"weekly_digest"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseChartData([]byte(raw))
			require.ErrorIs(t, err, ErrChartDataType)
		})
	}

	_, err := ParseChartData([]byte(`null`))
	require.ErrorIs(t, err, ErrChartDataEmpty)

	_, err = ParseChartData([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestChartDataMarshalCarriesDiscriminator(t *testing.T) {
	data := NewSingleStudentData(SingleStudentData{StudentName: "Ada", SelectedCharts: []string{ChartAttendance}})

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "single_student", decoded["type"])
	require.Equal(t, "Ada", decoded["studentName"])

	again, err := ParseChartData(raw)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestRenderedChartsIntersectsKnownIDs(t *testing.T) {
	data := NewClassReportData(ClassReportData{SelectedCharts: []string{"performance", "bogus", "attendance", "attendance"}})
	require.Equal(t, []string{ChartAttendance, ChartPerformance}, data.RenderedCharts())

	single := NewSingleStudentData(SingleStudentData{SelectedCharts: []string{ChartGrades, ChartMonthly}})
	require.Equal(t, []string{ChartMonthly}, single.RenderedCharts())
}

func TestChartDataScan(t *testing.T) {
	var data ChartData
	require.NoError(t, data.Scan([]byte(`{"type":"class_report","selectedCharts":[]}`)))
	require.Equal(t, ChartDataClassReport, data.Type)

	require.Error(t, data.Scan(42))

	value, err := data.Value()
	require.NoError(t, err)
	require.Contains(t, string(value.([]byte)), `"type":"class_report"`)
}

func TestChartDataValidateMismatch(t *testing.T) {
	data := ChartData{Type: ChartDataClassReport, SingleStudent: &SingleStudentData{}}
	require.Error(t, data.Validate())
	require.ErrorIs(t, ChartData{}.Validate(), ErrChartDataEmpty)
}

func TestZeroChartDataSurvivesJSONRoundTrip(t *testing.T) {
	report := Report{ID: "rep-1", Title: "Q1"}

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"chartData":null`)

	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "rep-1", decoded.ID)
	require.Equal(t, ChartData{}, decoded.ChartData)

	_, err = ParseChartData([]byte("  "))
	require.ErrorIs(t, err, ErrChartDataEmpty)
}
