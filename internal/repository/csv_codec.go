package repository

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/academic-records/internal/models"
)

// Table names, also used as file stems.
const (
	TableStudents    = "students"
	TableCourses     = "courses"
	TableInstructors = "instructors"
	TableOfferings   = "offerings"
)

// Separators used inside compound cells.
const (
	listSep    = ";"
	groupSep   = ":"
	entrySep   = ","
	keyValue   = "="
	minOffCols = 10
)

var (
	studentsHeader    = []string{"name", "id", "courseOfStudy", "isSpecialStatus", "onLeave"}
	coursesHeader     = []string{"code", "name", "creditHours", "prerequisites"}
	instructorsHeader = []string{"id", "name", "department"}
	offeringsHeader   = []string{"code", "courseCode", "instructorId", "term", "gradingScheme", "isInPerson", "room", "schedule", "capacity", "totalSessions", "roster", "grades", "absences"}

	// Text columns are always wrapped in quotes; the rest only when they must be.
	studentsQuoted    = []bool{true, false, true, false, false}
	coursesQuoted     = []bool{false, true, false, true}
	instructorsQuoted = []bool{false, true, true}
	offeringsQuoted   = []bool{false, false, false, true, false, false, true, true, false, false, false, true, false}
)

// RowError describes a persisted row, or a part of one, that could not be loaded.
type RowError struct {
	Table  string
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s.csv line %d: %s", e.Table, e.Line, e.Reason)
}

// LoadReport summarises the decoding of one table.
type LoadReport struct {
	Table  string
	Loaded int
	// Skipped are malformed rows or cell entries.
	Skipped []RowError
	// Dropped are well formed offering rows whose course or instructor is unknown.
	Dropped []RowError
}

func (r *LoadReport) skip(line int, format string, args ...interface{}) {
	r.Skipped = append(r.Skipped, RowError{Table: r.Table, Line: line, Reason: fmt.Sprintf(format, args...)})
}

// Codec maps catalog entities to and from the delimited text tables.
type Codec struct{}

// NewCodec constructs a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeStudents writes the students table.
func (c *Codec) EncodeStudents(w io.Writer, catalog *Catalog) error {
	rows := make([][]string, 0)
	for _, s := range catalog.Students() {
		rows = append(rows, []string{s.Name, s.ID, s.CourseOfStudy, strconv.FormatBool(s.SpecialStatus), strconv.FormatBool(s.OnLeave)})
	}
	return writeTable(w, studentsHeader, studentsQuoted, rows)
}

// EncodeCourses writes the courses table.
func (c *Codec) EncodeCourses(w io.Writer, catalog *Catalog) error {
	rows := make([][]string, 0)
	for _, course := range catalog.Courses() {
		rows = append(rows, []string{course.Code, course.Name, strconv.Itoa(course.CreditHours), strings.Join(course.Prerequisites, listSep)})
	}
	return writeTable(w, coursesHeader, coursesQuoted, rows)
}

// EncodeInstructors writes the instructors table.
func (c *Codec) EncodeInstructors(w io.Writer, catalog *Catalog) error {
	rows := make([][]string, 0)
	for _, i := range catalog.Instructors() {
		rows = append(rows, []string{i.ID, i.Name, i.Department})
	}
	return writeTable(w, instructorsHeader, instructorsQuoted, rows)
}

// EncodeOfferings writes the offerings table, packing roster and ledgers into single cells.
func (c *Codec) EncodeOfferings(w io.Writer, catalog *Catalog) error {
	rows := make([][]string, 0)
	for _, o := range catalog.Offerings() {
		roster := o.Roster()
		ids := make([]string, 0, len(roster))
		gradeGroups := make([]string, 0, len(roster))
		absences := make([]string, 0, len(roster))
		for _, s := range roster {
			ids = append(ids, s.ID)
			if g := encodeGrades(o.Grades(s)); g != "" {
				gradeGroups = append(gradeGroups, s.ID+groupSep+g)
			}
			absences = append(absences, s.ID+keyValue+strconv.Itoa(o.Absences(s)))
		}
		rows = append(rows, []string{
			o.Code,
			o.CourseCode,
			o.InstructorID,
			o.Term,
			string(o.GradingScheme),
			strconv.FormatBool(o.InPerson),
			o.Room,
			o.Schedule,
			strconv.Itoa(o.Capacity),
			strconv.Itoa(o.TotalSessions),
			strings.Join(ids, listSep),
			strings.Join(gradeGroups, listSep),
			strings.Join(absences, listSep),
		})
	}
	return writeTable(w, offeringsHeader, offeringsQuoted, rows)
}

func encodeGrades(grades map[string]float64) string {
	if len(grades) == 0 {
		return ""
	}
	labels := make([]string, 0, len(grades))
	for label := range grades {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	entries := make([]string, 0, len(labels))
	for _, label := range labels {
		entries = append(entries, label+keyValue+strconv.FormatFloat(grades[label], 'f', -1, 64))
	}
	return strings.Join(entries, entrySep)
}

// DecodeStudents reads the students table into catalog.
func (c *Codec) DecodeStudents(r io.Reader, catalog *Catalog) (LoadReport, error) {
	report := LoadReport{Table: TableStudents}
	err := readTable(r, &report, len(studentsHeader), func(line int, f []string) {
		s, err := models.NewStudent(f[1], f[0], f[2], parseBool(f[3]))
		if err != nil {
			report.skip(line, "%v", err)
			return
		}
		s.OnLeave = parseBool(f[4])
		if err := catalog.AddStudent(s); err != nil {
			report.skip(line, "%v", err)
			return
		}
		report.Loaded++
	})
	return report, err
}

// DecodeCourses reads the courses table into catalog.
func (c *Codec) DecodeCourses(r io.Reader, catalog *Catalog) (LoadReport, error) {
	report := LoadReport{Table: TableCourses}
	err := readTable(r, &report, len(coursesHeader), func(line int, f []string) {
		hours, err := strconv.Atoi(strings.TrimSpace(f[2]))
		if err != nil {
			report.skip(line, "invalid credit hours %q", f[2])
			return
		}
		course, err := models.NewCourse(f[0], f[1], hours, splitList(f[3]))
		if err != nil {
			report.skip(line, "%v", err)
			return
		}
		if err := catalog.AddCourse(course); err != nil {
			report.skip(line, "%v", err)
			return
		}
		report.Loaded++
	})
	return report, err
}

// DecodeInstructors reads the instructors table into catalog.
func (c *Codec) DecodeInstructors(r io.Reader, catalog *Catalog) (LoadReport, error) {
	report := LoadReport{Table: TableInstructors}
	err := readTable(r, &report, len(instructorsHeader), func(line int, f []string) {
		i, err := models.NewInstructor(f[0], f[1], f[2])
		if err != nil {
			report.skip(line, "%v", err)
			return
		}
		if err := catalog.AddInstructor(i); err != nil {
			report.skip(line, "%v", err)
			return
		}
		report.Loaded++
	})
	return report, err
}

// DecodeOfferings reads the offerings table. Courses, instructors and students
// must already be in catalog.
func (c *Codec) DecodeOfferings(r io.Reader, catalog *Catalog) (LoadReport, error) {
	report := LoadReport{Table: TableOfferings}
	err := readTable(r, &report, minOffCols, func(line int, f []string) {
		course, okCourse := catalog.FindCourse(f[1])
		instructor, okInstructor := catalog.FindInstructor(f[2])
		if !okCourse || !okInstructor {
			report.Dropped = append(report.Dropped, RowError{Table: report.Table, Line: line, Reason: fmt.Sprintf("unresolved course %q or instructor %q", f[1], f[2])})
			return
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(f[8]))
		if err != nil {
			report.skip(line, "invalid capacity %q", f[8])
			return
		}
		sessions, err := strconv.Atoi(strings.TrimSpace(f[9]))
		if err != nil {
			report.skip(line, "invalid total sessions %q", f[9])
			return
		}
		offering, err := models.NewOffering(models.OfferingAttributes{
			Code:          f[0],
			CourseCode:    course.Code,
			InstructorID:  instructor.ID,
			Term:          f[3],
			GradingScheme: models.ParseGradingScheme(f[4]),
			InPerson:      parseBool(f[5]),
			Room:          f[6],
			Schedule:      f[7],
			Capacity:      capacity,
			TotalSessions: sessions,
		})
		if err != nil {
			report.skip(line, "%v", err)
			return
		}
		if !course.AddOffering(offering) {
			report.skip(line, "offering %s clashes with an existing offering of course %s", offering.Code, course.Code)
			return
		}
		if len(f) > 10 {
			decodeRoster(&report, line, f[10], offering, catalog)
		}
		if len(f) > 11 {
			decodeGrades(&report, line, f[11], offering, catalog)
		}
		if len(f) > 12 {
			decodeAbsences(&report, line, f[12], offering, catalog)
		}
		report.Loaded++
	})
	return report, err
}

func decodeRoster(report *LoadReport, line int, cell string, o *models.Offering, catalog *Catalog) {
	for _, id := range splitList(cell) {
		s, ok := catalog.FindStudent(id)
		if !ok {
			continue
		}
		if !o.Enroll(s) {
			report.skip(line, "could not enroll %s in %s", id, o.Code)
		}
	}
}

func decodeGrades(report *LoadReport, line int, cell string, o *models.Offering, catalog *Catalog) {
	for _, group := range splitList(cell) {
		parts := strings.SplitN(group, groupSep, 2)
		if len(parts) != 2 {
			report.skip(line, "invalid grade group %q", group)
			continue
		}
		s, ok := catalog.FindStudent(parts[0])
		if !ok {
			continue
		}
		for _, entry := range strings.Split(parts[1], entrySep) {
			kv := strings.Split(entry, keyValue)
			if len(kv) != 2 {
				report.skip(line, "invalid grade entry %q", entry)
				continue
			}
			score, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
			if err != nil {
				report.skip(line, "invalid grade entry %q", entry)
				continue
			}
			if err := o.RecordGrade(s, strings.TrimSpace(kv[0]), score); err != nil {
				report.skip(line, "grade %q for %s: %v", entry, s.ID, err)
			}
		}
	}
}

func decodeAbsences(report *LoadReport, line int, cell string, o *models.Offering, catalog *Catalog) {
	for _, pair := range splitList(cell) {
		kv := strings.Split(pair, keyValue)
		if len(kv) != 2 {
			report.skip(line, "invalid absence entry %q", pair)
			continue
		}
		s, ok := catalog.FindStudent(kv[0])
		if !ok {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || count < 0 {
			report.skip(line, "invalid absence entry %q", pair)
			continue
		}
		for i := 0; i < count; i++ {
			if err := o.RecordAbsence(s); err != nil {
				report.skip(line, "absences for %s: %v", s.ID, err)
				break
			}
		}
	}
}

// readTable skips the header row and hands every record with at least minFields
// fields to fn. Malformed records are recorded on report and skipped.
func readTable(r io.Reader, report *LoadReport, minFields int, fn func(line int, fields []string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if !errors.As(err, &parseErr) {
			return fmt.Errorf("read %s header: %w", report.Table, err)
		}
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.skip(parseErr.Line, "%v", parseErr.Err)
				continue
			}
			return fmt.Errorf("read %s: %w", report.Table, err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) < minFields {
			report.skip(line, "expected %d fields, got %d", minFields, len(record))
			continue
		}
		fn(line, record)
	}
}

func writeTable(w io.Writer, header []string, quoted []bool, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(header, entrySep) + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				bw.WriteString(entrySep) //nolint:errcheck
			}
			if quoted[i] || strings.ContainsAny(field, ",\"\r\n") {
				field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
			}
			bw.WriteString(field) //nolint:errcheck
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

func parseBool(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, listSep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
