package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-records/internal/models"
	"github.com/noah-isme/academic-records/internal/repository"
)

type fixture struct {
	catalog *repository.Catalog
	metrics *MetricsService
}

// newFixture registers two instructors, courses C1 and C2 (C2 requires C1),
// three students (S2 has special status) and four offerings:
// C1-T1 Mon cap 2, C1-T2 Tue, C1-T3 Wed, C2-T1 Mon cap 1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := repository.NewCatalog()
	require.NoError(t, c.AddInstructor(&models.Instructor{ID: "I1", Name: "Ada Lovelace", Department: "Computing"}))
	require.NoError(t, c.AddInstructor(&models.Instructor{ID: "I2", Name: "Alan Turing"}))

	c1, err := models.NewCourse("C1", "Intro", 60, nil)
	require.NoError(t, err)
	c2, err := models.NewCourse("C2", "Algorithms", 80, []string{"C1"})
	require.NoError(t, err)
	require.NoError(t, c.AddCourse(c1))
	require.NoError(t, c.AddCourse(c2))

	for _, s := range []*models.Student{
		{ID: "S1", Name: "Ana", CourseOfStudy: "CS"},
		{ID: "S2", Name: "Bruno", CourseOfStudy: "CS", SpecialStatus: true},
		{ID: "S3", Name: "Carla", CourseOfStudy: "Math"},
	} {
		require.NoError(t, c.AddStudent(s))
	}

	offerings := []struct {
		course *models.Course
		attrs  models.OfferingAttributes
	}{
		{c1, models.OfferingAttributes{Code: "C1-T1", InstructorID: "I1", Term: "2024.1", GradingScheme: models.GradingScheme1, InPerson: true, Room: "B-101", Schedule: "Mon 14-16", Capacity: 2, TotalSessions: 10}},
		{c1, models.OfferingAttributes{Code: "C1-T2", InstructorID: "I1", Term: "2024.1", GradingScheme: models.GradingScheme2, Schedule: "Tue 14-16", Capacity: 5, TotalSessions: 10}},
		{c1, models.OfferingAttributes{Code: "C1-T3", InstructorID: "I2", Term: "2024.1", Schedule: "Wed 14-16", Capacity: 5, TotalSessions: 10}},
		{c2, models.OfferingAttributes{Code: "C2-T1", InstructorID: "I2", Term: "2024.2", Schedule: "Mon 14-16", Capacity: 1, TotalSessions: 20}},
	}
	for _, o := range offerings {
		offering, err := models.NewOffering(o.attrs)
		require.NoError(t, err)
		require.True(t, o.course.AddOffering(offering))
	}
	return &fixture{catalog: c, metrics: NewMetricsService()}
}

func (f *fixture) student(t *testing.T, id string) *models.Student {
	t.Helper()
	s, ok := f.catalog.FindStudent(id)
	require.True(t, ok)
	return s
}

func (f *fixture) offering(t *testing.T, code string) *models.Offering {
	t.Helper()
	o, ok := f.catalog.FindOffering(code)
	require.True(t, ok)
	return o
}

// approve enrolls the student directly and records passing grades.
func (f *fixture) approve(t *testing.T, studentID, offeringCode string) {
	t.Helper()
	s, o := f.student(t, studentID), f.offering(t, offeringCode)
	if !o.IsEnrolled(s) {
		require.True(t, o.Enroll(s))
	}
	for _, label := range []string{models.AssessmentP1, models.AssessmentP2, models.AssessmentP3, models.AssessmentL, models.AssessmentS} {
		require.NoError(t, o.RecordGrade(s, label, 6))
	}
}
