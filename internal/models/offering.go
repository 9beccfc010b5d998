package models

import (
	"fmt"
	"math"
	"strings"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// GradingScheme selects the formula used to turn assessment scores into an average.
type GradingScheme string

const (
	// GradingScheme1 is the plain mean of the five assessments.
	GradingScheme1 GradingScheme = "Scheme1"
	// GradingScheme2 weights P2 twice and P3 three times.
	GradingScheme2 GradingScheme = "Scheme2"
)

// ParseGradingScheme maps a persisted or user supplied label onto a scheme.
// Anything that is not recognisably the first scheme selects the weighted one.
func ParseGradingScheme(raw string) GradingScheme {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "scheme1", "1", "método 1", "metodo 1":
		return GradingScheme1
	default:
		return GradingScheme2
	}
}

// Assessment labels used by both grading formulas.
const (
	AssessmentP1 = "P1"
	AssessmentP2 = "P2"
	AssessmentP3 = "P3"
	AssessmentL  = "L"
	AssessmentS  = "S"
)

// Evaluation thresholds.
const (
	MinScore          = 0.0
	MaxScore          = 10.0
	PassingAverage    = 5.0
	MinimumAttendance = 75.0
)

// Outcome is the evaluation result of a student in an offering.
type Outcome string

// Possible outcomes.
const (
	OutcomeApproved         Outcome = "APPROVED"
	OutcomeFailedAttendance Outcome = "FAILED_ATTENDANCE"
	OutcomeFailedGrade      Outcome = "FAILED_GRADE"
)

// Label returns a human readable description of the outcome.
func (o Outcome) Label() string {
	switch o {
	case OutcomeApproved:
		return "Approved"
	case OutcomeFailedAttendance:
		return "Failed (attendance)"
	case OutcomeFailedGrade:
		return "Failed (grade)"
	default:
		return string(o)
	}
}

// OfferingAttributes are the immutable settings of an offering.
type OfferingAttributes struct {
	Code          string        `json:"code"`
	CourseCode    string        `json:"course_code"`
	InstructorID  string        `json:"instructor_id"`
	Term          string        `json:"term"`
	GradingScheme GradingScheme `json:"grading_scheme"`
	InPerson      bool          `json:"in_person"`
	Room          string        `json:"room,omitempty"`
	Schedule      string        `json:"schedule"`
	Capacity      int           `json:"capacity"`
	TotalSessions int           `json:"total_sessions"`
}

// Offering is a scheduled section of a course with its own roster and ledgers.
// Ledgers are keyed by student ID and hold an entry for every rostered student.
type Offering struct {
	OfferingAttributes

	roster   []*Student
	grades   map[string]map[string]float64
	absences map[string]int
}

// NewOffering validates attrs, trims the identifiers and returns an empty offering.
func NewOffering(attrs OfferingAttributes) (*Offering, error) {
	attrs.Code = strings.TrimSpace(attrs.Code)
	attrs.CourseCode = strings.TrimSpace(attrs.CourseCode)
	attrs.InstructorID = strings.TrimSpace(attrs.InstructorID)
	if attrs.Code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering code must not be blank")
	}
	if attrs.Capacity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering capacity must not be negative")
	}
	if attrs.TotalSessions < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering total sessions must not be negative")
	}
	if attrs.GradingScheme == "" {
		attrs.GradingScheme = GradingScheme1
	}
	if !attrs.InPerson {
		attrs.Room = ""
	}
	return &Offering{
		OfferingAttributes: attrs,
		grades:             make(map[string]map[string]float64),
		absences:           make(map[string]int),
	}, nil
}

// Enroll appends student to the roster. It fails when the student is nil,
// already rostered or the offering is full. Prerequisites and schedules are the
// caller's concern.
func (o *Offering) Enroll(student *Student) bool {
	if student == nil || o.IsFull() || o.IsEnrolled(student) {
		return false
	}
	o.roster = append(o.roster, student)
	o.grades[student.ID] = make(map[string]float64)
	o.absences[student.ID] = 0
	return true
}

// Withdraw removes student from the roster and both ledgers. Absent students are ignored.
func (o *Offering) Withdraw(student *Student) {
	if student == nil {
		return
	}
	for i, s := range o.roster {
		if s.ID == student.ID {
			o.roster = append(o.roster[:i:i], o.roster[i+1:]...)
			break
		}
	}
	delete(o.grades, student.ID)
	delete(o.absences, student.ID)
}

// IsEnrolled reports whether student is on the roster.
func (o *Offering) IsEnrolled(student *Student) bool {
	if student == nil {
		return false
	}
	for _, s := range o.roster {
		if s.ID == student.ID {
			return true
		}
	}
	return false
}

// RecordGrade stores score under label, replacing any previous value.
func (o *Offering) RecordGrade(student *Student, label string, score float64) error {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return appErrors.Clone(appErrors.ErrGradeOutOfRange, fmt.Sprintf("grade %v must be between 0 and 10", score))
	}
	if !o.IsEnrolled(student) {
		return appErrors.ErrNotEnrolled
	}
	o.grades[student.ID][label] = score
	return nil
}

// RecordAbsence adds exactly one absence for student.
func (o *Offering) RecordAbsence(student *Student) error {
	if !o.IsEnrolled(student) {
		return appErrors.ErrNotEnrolled
	}
	o.absences[student.ID]++
	return nil
}

// Grades returns a copy of the scores recorded for student.
func (o *Offering) Grades(student *Student) map[string]float64 {
	out := make(map[string]float64)
	if student == nil {
		return out
	}
	for label, score := range o.grades[student.ID] {
		out[label] = score
	}
	return out
}

// Absences returns the absence count of student, zero when unknown.
func (o *Offering) Absences(student *Student) int {
	if student == nil {
		return 0
	}
	return o.absences[student.ID]
}

// Average applies the grading scheme. Missing assessments count as zero.
func (o *Offering) Average(student *Student) float64 {
	if student == nil {
		return 0
	}
	grades := o.grades[student.ID]
	if len(grades) == 0 {
		return 0
	}
	p1, p2, p3 := grades[AssessmentP1], grades[AssessmentP2], grades[AssessmentP3]
	l, s := grades[AssessmentL], grades[AssessmentS]
	if o.GradingScheme == GradingScheme1 {
		return (p1 + p2 + p3 + l + s) / 5
	}
	return (p1 + 2*p2 + 3*p3 + l + s) / 8
}

// AttendanceRate returns the attended share of sessions as a percentage.
// It is not clamped: more absences than sessions yields a negative rate.
func (o *Offering) AttendanceRate(student *Student) float64 {
	if o.TotalSessions == 0 {
		return 0
	}
	attended := o.TotalSessions - o.Absences(student)
	return float64(attended) / float64(o.TotalSessions) * 100
}

// Outcome evaluates attendance first, then the average.
func (o *Offering) Outcome(student *Student) Outcome {
	if o.AttendanceRate(student) < MinimumAttendance {
		return OutcomeFailedAttendance
	}
	if o.Average(student) >= PassingAverage {
		return OutcomeApproved
	}
	return OutcomeFailedGrade
}

// AbsenceAllowance is a quarter of the sessions, rounded up. Going past it
// requires an explicit override.
func (o *Offering) AbsenceAllowance() int {
	return int(math.Ceil(float64(o.TotalSessions) * (100 - MinimumAttendance) / 100))
}

// Roster returns the enrolled students in enrollment order.
func (o *Offering) Roster() []*Student {
	out := make([]*Student, len(o.roster))
	copy(out, o.roster)
	return out
}

// Enrolled returns the roster size.
func (o *Offering) Enrolled() int { return len(o.roster) }

// IsFull reports whether the roster reached capacity.
func (o *Offering) IsFull() bool { return len(o.roster) >= o.Capacity }

// OpenSeats returns the remaining capacity.
func (o *Offering) OpenSeats() int { return o.Capacity - len(o.roster) }

// Modality returns "In person" or "Remote".
func (o *Offering) Modality() string {
	if o.InPerson {
		return "In person"
	}
	return "Remote"
}
