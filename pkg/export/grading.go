package export

import "math"

// Fixed executive summary thresholds.
const (
	HighPerformerThreshold = 90.0
	LowAttendanceThreshold = 75.0
)

// Grade is a letter band with its qualitative remark.
type Grade struct {
	Letter string
	Remark string
}

var gradeLadder = []struct {
	min   int
	grade Grade
}{
	{90, Grade{"A+", "Outstanding"}},
	{80, Grade{"A", "Excellent"}},
	{70, Grade{"B+", "Very Good"}},
	{60, Grade{"B", "Good"}},
	{50, Grade{"C", "Satisfactory"}},
	{40, Grade{"D", "Needs Improvement"}},
}

// GradeFor maps a rounded percentage onto the grade ladder.
func GradeFor(percentage int) Grade {
	for _, band := range gradeLadder {
		if percentage >= band.min {
			return band.grade
		}
	}
	return Grade{"F", "Fail"}
}

// Percentage returns round(marks/outOf*100); a non-positive outOf yields 0.
func Percentage(marks, outOf float64) int {
	if outOf <= 0 {
		return 0
	}
	return roundInt(marks / outOf * 100)
}

func roundInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
