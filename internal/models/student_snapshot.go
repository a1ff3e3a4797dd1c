package models

// StudentSnapshot is the per-student academic record handed in by the authoring client.
// Envelopes are computed from snapshots once and stored; later changes to the source never
// reach an existing report.
type StudentSnapshot struct {
	ID                string              `json:"id" validate:"required"`
	Name              string              `json:"name" validate:"required"`
	StudentNumber     string              `json:"studentNumber"`
	ClassName         string              `json:"className,omitempty"`
	DaysPresent       int                 `json:"daysPresent" validate:"min=0"`
	DaysAbsent        int                 `json:"daysAbsent" validate:"min=0"`
	DaysLate          int                 `json:"daysLate" validate:"min=0"`
	Subjects          []SubjectMark       `json:"subjects" validate:"dive"`
	MonthlyAttendance []MonthlyAttendance `json:"monthlyAttendance" validate:"dive"`
	Scores            []ScorePoint        `json:"scores" validate:"dive"`
}

// AttendanceRate returns the share of recorded days attended, late days counting as attended.
func (s StudentSnapshot) AttendanceRate() float64 {
	attended := s.DaysPresent + s.DaysLate
	total := attended + s.DaysAbsent
	if total <= 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}
