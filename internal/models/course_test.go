package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

func newTestCourse(t *testing.T, code string, prereqs ...string) *Course {
	t.Helper()
	c, err := NewCourse(code, "Course "+code, 60, prereqs)
	require.NoError(t, err)
	return c
}

func offeringAt(t *testing.T, code, schedule string, capacity int) *Offering {
	t.Helper()
	o, err := NewOffering(OfferingAttributes{Code: code, Schedule: schedule, Capacity: capacity, TotalSessions: 10})
	require.NoError(t, err)
	return o
}

func TestNewCourse(t *testing.T) {
	_, err := NewCourse("", "Nothing", 10, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	c, err := NewCourse(" C2 ", "Algorithms", 60, []string{" C1 ", "", "MATH"})
	require.NoError(t, err)
	assert.Equal(t, "C2", c.Code)
	assert.Equal(t, []string{"C1", "MATH"}, c.Prerequisites)
}

func TestCourseAddOfferingRejectsScheduleConflict(t *testing.T) {
	c := newTestCourse(t, "C1")
	first := offeringAt(t, "T1", "Mon 14-16", 10)

	assert.True(t, c.AddOffering(first))
	assert.Equal(t, "C1", first.CourseCode)
	assert.False(t, c.AddOffering(offeringAt(t, "T2", "Mon 14-16", 10)))
	assert.False(t, c.AddOffering(offeringAt(t, "t1", "Tue 08-10", 10)))
	assert.True(t, c.AddOffering(offeringAt(t, "T3", "Tue 08-10", 10)))
	assert.False(t, c.AddOffering(nil))
	assert.Len(t, c.Offerings(), 2)

	found, ok := c.Offering("t3")
	require.True(t, ok)
	assert.Equal(t, "T3", found.Code)
	_, ok = c.Offering("T9")
	assert.False(t, ok)
}

func TestCourseRemoveOffering(t *testing.T) {
	c := newTestCourse(t, "C1")
	o := offeringAt(t, "T1", "Mon", 10)
	require.True(t, c.AddOffering(o))
	c.RemoveOffering(o)
	assert.Empty(t, c.Offerings())
	assert.True(t, c.AddOffering(offeringAt(t, "T2", "Mon", 10)))
}

func TestCourseOfferingsWithOpenSeats(t *testing.T) {
	c := newTestCourse(t, "C1")
	full := offeringAt(t, "T1", "Mon", 1)
	open := offeringAt(t, "T2", "Tue", 2)
	require.True(t, c.AddOffering(full))
	require.True(t, c.AddOffering(open))
	require.True(t, full.Enroll(&Student{ID: "S1"}))

	var codes []string
	for o := range c.OfferingsWithOpenSeats() {
		codes = append(codes, o.Code)
	}
	assert.Equal(t, []string{"T2"}, codes)
	assert.True(t, c.HasOpenSeats())

	require.True(t, open.Enroll(&Student{ID: "S2"}))
	require.True(t, open.Enroll(&Student{ID: "S3"}))
	assert.False(t, c.HasOpenSeats())
	assert.Equal(t, 3, c.TotalEnrolled())
}

func TestCourseCanStudentEnrollPrerequisites(t *testing.T) {
	c := newTestCourse(t, "C3", "C1", "C2")
	s := &Student{ID: "S1"}

	got := c.CanStudentEnroll(s, []string{"C1"})
	assert.False(t, got.Allowed)
	assert.Equal(t, []string{"C2"}, got.MissingPrerequisites)

	got = c.CanStudentEnroll(s, []string{"C2", "C1", "C9"})
	assert.True(t, got.Allowed)
	assert.Empty(t, got.MissingPrerequisites)

	assert.False(t, c.CanStudentEnroll(nil, nil).Allowed)
}

func TestCourseCanStudentEnrollSpecialStatusCap(t *testing.T) {
	c := newTestCourse(t, "C1")
	t1, t2, t3 := offeringAt(t, "T1", "Mon", 5), offeringAt(t, "T2", "Tue", 5), offeringAt(t, "T3", "Wed", 5)
	for _, o := range []*Offering{t1, t2, t3} {
		require.True(t, c.AddOffering(o))
	}
	special := &Student{ID: "S1", SpecialStatus: true}
	regular := &Student{ID: "S2"}

	for _, o := range []*Offering{t1, t2} {
		require.True(t, c.CanStudentEnroll(special, nil).Allowed)
		require.True(t, o.Enroll(special))
		require.True(t, o.Enroll(regular))
	}

	got := c.CanStudentEnroll(special, nil)
	assert.False(t, got.Allowed)
	assert.True(t, got.SpecialStatusCapReached)
	assert.True(t, c.CanStudentEnroll(regular, nil).Allowed)

	other := newTestCourse(t, "C2")
	assert.True(t, other.CanStudentEnroll(special, nil).Allowed)
}
