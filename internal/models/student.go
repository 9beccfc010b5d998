package models

import (
	"strings"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// Student is a learner registered in the catalog. ID is the identity key.
type Student struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CourseOfStudy string `json:"course_of_study"`
	SpecialStatus bool   `json:"special_status"`
	OnLeave       bool   `json:"on_leave"`
}

// NewStudent builds a Student with a trimmed identifier, rejecting a blank one.
func NewStudent(id, name, courseOfStudy string, specialStatus bool) (*Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id must not be blank")
	}
	return &Student{ID: id, Name: name, CourseOfStudy: courseOfStudy, SpecialStatus: specialStatus}, nil
}
