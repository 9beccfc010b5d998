package handler

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/academic-records/internal/models"
	"github.com/noah-isme/academic-records/internal/service"
)

// Printer renders listings and reports as aligned plain text.
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Message prints a single formatted line.
func (p *Printer) Message(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush() //nolint:errcheck
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Students lists students.
func (p *Printer) Students(students []*models.Student) {
	if len(students) == 0 {
		p.Message("No students registered.")
		return
	}
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{s.ID, s.Name, s.CourseOfStudy, yesNo(s.SpecialStatus), yesNo(s.OnLeave)})
	}
	p.table([]string{"ID", "NAME", "COURSE OF STUDY", "SPECIAL", "ON LEAVE"}, rows)
}

// Instructors lists instructors.
func (p *Printer) Instructors(instructors []*models.Instructor) {
	if len(instructors) == 0 {
		p.Message("No instructors registered.")
		return
	}
	for _, i := range instructors {
		p.Message("%s", service.InstructorInfo(i))
	}
}

// Courses lists courses.
func (p *Printer) Courses(courses []*models.Course) {
	if len(courses) == 0 {
		p.Message("No courses registered.")
		return
	}
	for _, c := range courses {
		p.Message("%s", service.CourseInfo(c))
	}
}

// Offerings lists offerings.
func (p *Printer) Offerings(offerings []*models.Offering) {
	if len(offerings) == 0 {
		p.Message("No offerings.")
		return
	}
	for _, o := range offerings {
		p.Message("%s", service.OfferingInfo(o))
	}
}

// AbsenceSummary prints the attendance position after recording absences.
func (p *Printer) AbsenceSummary(studentID, offeringCode string, s service.AbsenceSummary) {
	p.Message("%s in %s: %d of %d sessions missed (allowance %d), attendance %.1f%%.",
		studentID, offeringCode, s.Absences, s.TotalSessions, s.Allowance, s.AttendanceRate)
	if s.FailedByAttendance {
		p.Message("Warning: attendance is below %.0f%%; the student fails by attendance.", models.MinimumAttendance)
	}
}

func (p *Printer) results(r service.OfferingReport) {
	data := r.Dataset()
	if len(data.Rows) == 0 {
		p.Message("  No students enrolled.")
	} else {
		p.table(data.Headers, data.Rows)
	}
	for _, line := range data.Summary {
		p.Message("%s", line)
	}
}

// OfferingReport prints the results of one offering.
func (p *Printer) OfferingReport(r *service.OfferingReport) {
	p.Message("== %s ==", r.Dataset().Title)
	p.Message("%s", service.OfferingInfo(r.Offering))
	p.results(*r)
}

// CourseReport prints every offering of a course.
func (p *Printer) CourseReport(r *service.CourseReport) {
	p.Message("== %s ==", r.Dataset().Title)
	if len(r.Offerings) == 0 {
		p.Message("No offerings.")
		return
	}
	for _, o := range r.Offerings {
		p.Message("")
		p.Message("-- %s (%d open seats, %s)", o.Offering.Code, o.Offering.OpenSeats(), o.Offering.GradingScheme)
		p.results(o)
	}
}

// InstructorReport prints the offerings taught by an instructor.
func (p *Printer) InstructorReport(r *service.InstructorReport) {
	data := r.Dataset()
	p.Message("== %s ==", data.Title)
	if len(data.Rows) == 0 {
		p.Message("No offerings taught.")
		return
	}
	p.table(data.Headers, data.Rows)
	for _, o := range r.Offerings {
		for _, s := range o.NeedsAttention {
			p.Message("Needs attention in %s: %s %s (%s, average %.2f, attendance %.1f%%)",
				o.Offering.Code, s.StudentID, s.StudentName, s.Outcome.Label(), s.Average, s.AttendanceRate)
		}
	}
}

// StudentReport prints the offerings a student attends.
func (p *Printer) StudentReport(r *service.StudentReport) {
	data := r.Dataset()
	p.Message("== %s ==", data.Title)
	p.Message("Course of study: %s, special status: %s, on leave: %s", r.Student.CourseOfStudy, yesNo(r.Student.SpecialStatus), yesNo(r.Student.OnLeave))
	if len(data.Rows) == 0 {
		p.Message("Not enrolled in any offering.")
		return
	}
	p.table(data.Headers, data.Rows)
	credits := 0
	for _, e := range r.Enrollments {
		credits += e.CreditHours
	}
	p.Message("Total credit hours: %s", strconv.Itoa(credits))
}
