package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/models"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
	"github.com/noah-isme/academic-records/pkg/export"
)

// StudentResult is one roster line of an offering report.
type StudentResult struct {
	StudentID      string         `json:"student_id"`
	StudentName    string         `json:"student_name"`
	HasGrades      bool           `json:"has_grades"`
	Average        float64        `json:"average"`
	AttendanceRate float64        `json:"attendance_rate"`
	Absences       int            `json:"absences"`
	Outcome        models.Outcome `json:"outcome"`
}

// OfferingSummary aggregates the results of an offering.
type OfferingSummary struct {
	Enrolled       int     `json:"enrolled"`
	Approved       int     `json:"approved"`
	ClassAverage   float64 `json:"class_average"`
	MeanAttendance float64 `json:"mean_attendance"`
}

// ApprovalRate returns the approved share as a percentage.
func (s OfferingSummary) ApprovalRate() float64 {
	if s.Enrolled == 0 {
		return 0
	}
	return float64(s.Approved) / float64(s.Enrolled) * 100
}

// OfferingReport lists the results of every rostered student.
type OfferingReport struct {
	Offering       *models.Offering `json:"offering"`
	CourseName     string           `json:"course_name"`
	InstructorName string           `json:"instructor_name"`
	Results        []StudentResult  `json:"results"`
	Summary        OfferingSummary  `json:"summary"`
}

// CourseReport groups the offering reports of a course.
type CourseReport struct {
	Course    *models.Course   `json:"course"`
	Offerings []OfferingReport `json:"offerings"`
}

// InstructorOffering is an offering report with the students needing attention.
type InstructorOffering struct {
	OfferingReport
	NeedsAttention []StudentResult `json:"needs_attention"`
}

// InstructorReport summarises every offering taught by an instructor.
type InstructorReport struct {
	Instructor *models.Instructor   `json:"instructor"`
	Offerings  []InstructorOffering `json:"offerings"`
}

// StudentEnrollment is one offering line of a student report.
type StudentEnrollment struct {
	OfferingCode   string               `json:"offering_code"`
	CourseCode     string               `json:"course_code"`
	CourseName     string               `json:"course_name"`
	CreditHours    int                  `json:"credit_hours"`
	InstructorName string               `json:"instructor_name"`
	Term           string               `json:"term"`
	Modality       string               `json:"modality"`
	GradingScheme  models.GradingScheme `json:"grading_scheme"`
	Grades         map[string]float64   `json:"grades"`
	Average        float64              `json:"average"`
	AttendanceRate float64              `json:"attendance_rate"`
	Outcome        models.Outcome       `json:"outcome"`
}

// HasGrades reports whether any score was recorded.
func (e StudentEnrollment) HasGrades() bool {
	return len(e.Grades) > 0
}

// StudentReport lists the current offerings of a student.
type StudentReport struct {
	Student     *models.Student     `json:"student"`
	Enrollments []StudentEnrollment `json:"enrollments"`
}

// ReportService builds read-only academic reports from the catalog.
type ReportService struct {
	catalog catalogStore
	logger  *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(catalog catalogStore, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{catalog: catalog, logger: logger}
}

// OfferingReport builds the report of the offering with the given code, matched
// case-insensitively across all courses.
func (s *ReportService) OfferingReport(code string) (*OfferingReport, error) {
	offering, ok := s.catalog.FindOffering(code)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
	}
	report := s.buildOfferingReport(offering)
	return &report, nil
}

// CourseReport builds one offering report per offering of the course.
func (s *ReportService) CourseReport(code string) (*CourseReport, error) {
	course, ok := s.catalog.FindCourse(code)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	report := &CourseReport{Course: course}
	for _, o := range course.Offerings() {
		report.Offerings = append(report.Offerings, s.buildOfferingReport(o))
	}
	return report, nil
}

// InstructorReport builds the report of every offering the instructor teaches.
func (s *ReportService) InstructorReport(id string) (*InstructorReport, error) {
	instructor, ok := s.catalog.FindInstructor(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	report := &InstructorReport{Instructor: instructor}
	for _, o := range s.catalog.OfferingsByInstructor(instructor.ID) {
		entry := InstructorOffering{OfferingReport: s.buildOfferingReport(o)}
		for _, r := range entry.Results {
			if r.Outcome != models.OutcomeApproved {
				entry.NeedsAttention = append(entry.NeedsAttention, r)
			}
		}
		report.Offerings = append(report.Offerings, entry)
	}
	return report, nil
}

// StudentReport lists every offering the student is rostered in.
func (s *ReportService) StudentReport(id string) (*StudentReport, error) {
	student, ok := s.catalog.FindStudent(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	report := &StudentReport{Student: student}
	for _, o := range s.catalog.OfferingsOf(student) {
		entry := StudentEnrollment{
			OfferingCode:   o.Code,
			CourseCode:     o.CourseCode,
			InstructorName: s.instructorName(o.InstructorID),
			Term:           o.Term,
			Modality:       o.Modality(),
			GradingScheme:  o.GradingScheme,
			Grades:         o.Grades(student),
			Average:        o.Average(student),
			AttendanceRate: o.AttendanceRate(student),
			Outcome:        o.Outcome(student),
		}
		if course, ok := s.catalog.FindCourse(o.CourseCode); ok {
			entry.CourseName = course.Name
			entry.CreditHours = course.CreditHours
		}
		report.Enrollments = append(report.Enrollments, entry)
	}
	s.logger.Debug("student report built", zap.String("student_id", student.ID), zap.Int("offerings", len(report.Enrollments)))
	return report, nil
}

func (s *ReportService) buildOfferingReport(o *models.Offering) OfferingReport {
	report := OfferingReport{Offering: o, InstructorName: s.instructorName(o.InstructorID)}
	if course, ok := s.catalog.FindCourse(o.CourseCode); ok {
		report.CourseName = course.Name
	}
	var sumAverage, sumAttendance float64
	for _, student := range o.Roster() {
		r := StudentResult{
			StudentID:      student.ID,
			StudentName:    student.Name,
			HasGrades:      len(o.Grades(student)) > 0,
			Average:        o.Average(student),
			AttendanceRate: o.AttendanceRate(student),
			Absences:       o.Absences(student),
			Outcome:        o.Outcome(student),
		}
		if r.Outcome == models.OutcomeApproved {
			report.Summary.Approved++
		}
		sumAverage += r.Average
		sumAttendance += r.AttendanceRate
		report.Results = append(report.Results, r)
	}
	report.Summary.Enrolled = len(report.Results)
	if n := float64(report.Summary.Enrolled); n > 0 {
		report.Summary.ClassAverage = sumAverage / n
		report.Summary.MeanAttendance = sumAttendance / n
	}
	return report
}

func (s *ReportService) instructorName(id string) string {
	if i, ok := s.catalog.FindInstructor(id); ok {
		return i.Name
	}
	return id
}

// OfferingInfo is the one-line description used in listings.
func OfferingInfo(o *models.Offering) string {
	place := o.Modality()
	if o.InPerson && o.Room != "" {
		place += " (" + o.Room + ")"
	}
	return fmt.Sprintf("%s [%s] %s, %s, %s, %d/%d enrolled, %d sessions, %s",
		o.Code, o.CourseCode, o.Term, o.Schedule, place, o.Enrolled(), o.Capacity, o.TotalSessions, o.GradingScheme)
}

// CourseInfo is the one-line description used in listings.
func CourseInfo(c *models.Course) string {
	prereqs := "none"
	if len(c.Prerequisites) > 0 {
		prereqs = strings.Join(c.Prerequisites, ", ")
	}
	return fmt.Sprintf("%s %s, %dh, prerequisites: %s, %d offerings, %d enrolled",
		c.Code, c.Name, c.CreditHours, prereqs, len(c.Offerings()), c.TotalEnrolled())
}

// InstructorInfo is the one-line description used in listings.
func InstructorInfo(i *models.Instructor) string {
	if i.Department == "" {
		return fmt.Sprintf("%s %s", i.ID, i.Name)
	}
	return fmt.Sprintf("%s %s (%s)", i.ID, i.Name, i.Department)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

var resultHeaders = []string{"Student ID", "Name", "Average", "Attendance", "Absences", "Outcome"}

func resultRows(results []StudentResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		average := formatScore(r.Average)
		if !r.HasGrades {
			average = "no grades"
		}
		rows = append(rows, []string{r.StudentID, r.StudentName, average, formatPercent(r.AttendanceRate), strconv.Itoa(r.Absences), r.Outcome.Label()})
	}
	return rows
}

func summaryLines(prefix string, s OfferingSummary) []string {
	return []string{
		fmt.Sprintf("%sEnrolled: %d, approved: %d (%s)", prefix, s.Enrolled, s.Approved, formatPercent(s.ApprovalRate())),
		fmt.Sprintf("%sClass average: %s, mean attendance: %s", prefix, formatScore(s.ClassAverage), formatPercent(s.MeanAttendance)),
	}
}

// Dataset flattens the report for export.
func (r *OfferingReport) Dataset() export.Dataset {
	return export.Dataset{
		Title:   fmt.Sprintf("Offering %s - %s (%s)", r.Offering.Code, r.CourseName, r.InstructorName),
		Headers: resultHeaders,
		Rows:    resultRows(r.Results),
		Summary: summaryLines("", r.Summary),
	}
}

// Dataset flattens the report for export, one row per student per offering.
func (r *CourseReport) Dataset() export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Course %s - %s", r.Course.Code, r.Course.Name),
		Headers: append([]string{"Offering", "Scheme", "Open seats"}, resultHeaders...),
	}
	for _, o := range r.Offerings {
		prefix := []string{o.Offering.Code, string(o.Offering.GradingScheme), strconv.Itoa(o.Offering.OpenSeats())}
		for _, row := range resultRows(o.Results) {
			data.Rows = append(data.Rows, append(append([]string(nil), prefix...), row...))
		}
		data.Summary = append(data.Summary, summaryLines(o.Offering.Code+": ", o.Summary)...)
	}
	return data
}

// Dataset flattens the report for export, one row per offering.
func (r *InstructorReport) Dataset() export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Instructor %s - %s", r.Instructor.ID, r.Instructor.Name),
		Headers: []string{"Offering", "Course", "Term", "Enrolled", "Approved", "Approval", "Class average", "Needs attention"},
	}
	for _, o := range r.Offerings {
		names := make([]string, 0, len(o.NeedsAttention))
		for _, s := range o.NeedsAttention {
			names = append(names, s.StudentID)
		}
		data.Rows = append(data.Rows, []string{
			o.Offering.Code,
			o.Offering.CourseCode,
			o.Offering.Term,
			strconv.Itoa(o.Summary.Enrolled),
			strconv.Itoa(o.Summary.Approved),
			formatPercent(o.Summary.ApprovalRate()),
			formatScore(o.Summary.ClassAverage),
			strings.Join(names, " "),
		})
	}
	return data
}

// Dataset flattens the report for export, one row per offering.
func (r *StudentReport) Dataset() export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Student %s - %s", r.Student.ID, r.Student.Name),
		Headers: []string{"Offering", "Course", "Credit hours", "Instructor", "Modality", "Scheme", "Grades", "Average", "Attendance", "Outcome"},
	}
	for _, e := range r.Enrollments {
		average := formatScore(e.Average)
		if !e.HasGrades() {
			average = "no grades"
		}
		data.Rows = append(data.Rows, []string{
			e.OfferingCode,
			e.CourseCode + " " + e.CourseName,
			strconv.Itoa(e.CreditHours),
			e.InstructorName,
			e.Modality,
			string(e.GradingScheme),
			FormatGrades(e.Grades),
			average,
			formatPercent(e.AttendanceRate),
			e.Outcome.Label(),
		})
	}
	if r.Student.OnLeave {
		data.Summary = append(data.Summary, "Student is on leave of absence.")
	}
	return data
}

// FormatGrades renders scores as "L=10 P1=7.5", sorted by label.
func FormatGrades(grades map[string]float64) string {
	labels := make([]string, 0, len(grades))
	for label := range grades {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, label+"="+strconv.FormatFloat(grades[label], 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}
