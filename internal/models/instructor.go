package models

import (
	"strings"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// Instructor teaches offerings. The offerings taught are derived from Offering.InstructorID.
type Instructor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// NewInstructor builds an Instructor with a trimmed identifier, rejecting a blank one.
func NewInstructor(id, name, department string) (*Instructor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor id must not be blank")
	}
	return &Instructor{ID: id, Name: name, Department: department}, nil
}
