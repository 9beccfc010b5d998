package repository

import (
	"strings"

	"github.com/noah-isme/academic-records/internal/models"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// Catalog is the in-memory application state: every registered student,
// instructor and course, with courses owning their offerings. Lookups return
// (nil, false) when nothing matches.
type Catalog struct {
	students    []*models.Student
	instructors []*models.Instructor
	courses     []*models.Course

	studentIdx    map[string]*models.Student
	instructorIdx map[string]*models.Instructor
	courseIdx     map[string]*models.Course
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.Reset()
	return c
}

// Reset drops every entity.
func (c *Catalog) Reset() {
	c.students = nil
	c.instructors = nil
	c.courses = nil
	c.studentIdx = make(map[string]*models.Student)
	c.instructorIdx = make(map[string]*models.Instructor)
	c.courseIdx = make(map[string]*models.Course)
}

// AddStudent registers s; its ID must be unique.
func (c *Catalog) AddStudent(s *models.Student) error {
	if s == nil {
		return appErrors.Clone(appErrors.ErrValidation, "student required")
	}
	if _, ok := c.studentIdx[s.ID]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "student id already registered: "+s.ID)
	}
	c.students = append(c.students, s)
	c.studentIdx[s.ID] = s
	return nil
}

// FindStudent looks a student up by ID.
func (c *Catalog) FindStudent(id string) (*models.Student, bool) {
	s, ok := c.studentIdx[strings.TrimSpace(id)]
	return s, ok
}

// Students returns all students in registration order.
func (c *Catalog) Students() []*models.Student {
	return append([]*models.Student(nil), c.students...)
}

// AddInstructor registers i; its ID must be unique.
func (c *Catalog) AddInstructor(i *models.Instructor) error {
	if i == nil {
		return appErrors.Clone(appErrors.ErrValidation, "instructor required")
	}
	if _, ok := c.instructorIdx[i.ID]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "instructor id already registered: "+i.ID)
	}
	c.instructors = append(c.instructors, i)
	c.instructorIdx[i.ID] = i
	return nil
}

// FindInstructor looks an instructor up by ID.
func (c *Catalog) FindInstructor(id string) (*models.Instructor, bool) {
	i, ok := c.instructorIdx[strings.TrimSpace(id)]
	return i, ok
}

// Instructors returns all instructors in registration order.
func (c *Catalog) Instructors() []*models.Instructor {
	return append([]*models.Instructor(nil), c.instructors...)
}

// AddCourse registers course; its code must be unique.
func (c *Catalog) AddCourse(course *models.Course) error {
	if course == nil {
		return appErrors.Clone(appErrors.ErrValidation, "course required")
	}
	if _, ok := c.courseIdx[course.Code]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "course code already registered: "+course.Code)
	}
	c.courses = append(c.courses, course)
	c.courseIdx[course.Code] = course
	return nil
}

// FindCourse looks a course up by code.
func (c *Catalog) FindCourse(code string) (*models.Course, bool) {
	course, ok := c.courseIdx[strings.TrimSpace(code)]
	return course, ok
}

// Courses returns all courses in registration order.
func (c *Catalog) Courses() []*models.Course {
	return append([]*models.Course(nil), c.courses...)
}

// Offerings returns the offerings of every course, grouped by course.
func (c *Catalog) Offerings() []*models.Offering {
	var out []*models.Offering
	for _, course := range c.courses {
		out = append(out, course.Offerings()...)
	}
	return out
}

// FindOffering returns the first offering, across all courses, whose code
// matches ignoring case.
func (c *Catalog) FindOffering(code string) (*models.Offering, bool) {
	for _, course := range c.courses {
		if o, ok := course.Offering(code); ok {
			return o, true
		}
	}
	return nil, false
}

// OfferingsByInstructor is the derived view of the offerings an instructor teaches.
func (c *Catalog) OfferingsByInstructor(instructorID string) []*models.Offering {
	var out []*models.Offering
	for _, o := range c.Offerings() {
		if o.InstructorID == instructorID {
			out = append(out, o)
		}
	}
	return out
}

// OfferingsOf returns every offering whose roster contains student.
func (c *Catalog) OfferingsOf(student *models.Student) []*models.Offering {
	var out []*models.Offering
	for _, o := range c.Offerings() {
		if o.IsEnrolled(student) {
			out = append(out, o)
		}
	}
	return out
}
