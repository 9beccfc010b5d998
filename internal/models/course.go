package models

import (
	"iter"
	"slices"
	"strings"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// MaxSpecialStatusEnrollments caps how many offerings of one course a
// special-status student may hold at once.
const MaxSpecialStatusEnrollments = 2

// Course is a catalog entry owning its offerings. Code is the identity key.
type Course struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	CreditHours   int      `json:"credit_hours"`
	Prerequisites []string `json:"prerequisites"`

	offerings []*Offering
}

// Eligibility explains the result of Course.CanStudentEnroll.
type Eligibility struct {
	Allowed                 bool
	MissingPrerequisites    []string
	SpecialStatusCapReached bool
}

// NewCourse builds a Course, rejecting a blank code. Blank prerequisite codes are dropped.
func NewCourse(code, name string, creditHours int, prerequisites []string) (*Course, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code must not be blank")
	}
	prereqs := make([]string, 0, len(prerequisites))
	for _, p := range prerequisites {
		if p = strings.TrimSpace(p); p != "" {
			prereqs = append(prereqs, p)
		}
	}
	return &Course{Code: code, Name: name, CreditHours: creditHours, Prerequisites: prereqs}, nil
}

// AddOffering registers candidate unless another offering already uses its
// schedule or its code.
func (c *Course) AddOffering(candidate *Offering) bool {
	if candidate == nil {
		return false
	}
	for _, o := range c.offerings {
		if o.Schedule == candidate.Schedule || strings.EqualFold(o.Code, candidate.Code) {
			return false
		}
	}
	candidate.CourseCode = c.Code
	c.offerings = append(c.offerings, candidate)
	return true
}

// RemoveOffering drops offering from the course.
func (c *Course) RemoveOffering(offering *Offering) {
	c.offerings = slices.DeleteFunc(c.offerings, func(o *Offering) bool { return o == offering })
}

// Offerings returns the course offerings in creation order.
func (c *Course) Offerings() []*Offering {
	return slices.Clone(c.offerings)
}

// Offering finds an offering by code, ignoring case.
func (c *Course) Offering(code string) (*Offering, bool) {
	code = strings.TrimSpace(code)
	for _, o := range c.offerings {
		if strings.EqualFold(o.Code, code) {
			return o, true
		}
	}
	return nil, false
}

// OfferingsWithOpenSeats yields offerings that still have room, evaluated as iterated.
func (c *Course) OfferingsWithOpenSeats() iter.Seq[*Offering] {
	return func(yield func(*Offering) bool) {
		for _, o := range c.offerings {
			if o.Enrolled() < o.Capacity && !yield(o) {
				return
			}
		}
	}
}

// HasOpenSeats reports whether any offering has room.
func (c *Course) HasOpenSeats() bool {
	for range c.OfferingsWithOpenSeats() {
		return true
	}
	return false
}

// TotalEnrolled sums roster sizes over all offerings.
func (c *Course) TotalEnrolled() int {
	total := 0
	for _, o := range c.offerings {
		total += o.Enrolled()
	}
	return total
}

// CanStudentEnroll checks the prerequisites against completed course codes and,
// for special-status students, the per-course enrollment cap.
func (c *Course) CanStudentEnroll(student *Student, completed []string) Eligibility {
	if student == nil {
		return Eligibility{}
	}
	var missing []string
	for _, p := range c.Prerequisites {
		if !slices.Contains(completed, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return Eligibility{MissingPrerequisites: missing}
	}
	if student.SpecialStatus {
		current := 0
		for _, o := range c.offerings {
			if o.IsEnrolled(student) {
				current++
			}
		}
		if current >= MaxSpecialStatusEnrollments {
			return Eligibility{SpecialStatusCapReached: true}
		}
	}
	return Eligibility{Allowed: true}
}
