package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/models"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

type catalogStore interface {
	AddStudent(s *models.Student) error
	FindStudent(id string) (*models.Student, bool)
	Students() []*models.Student
	AddInstructor(i *models.Instructor) error
	FindInstructor(id string) (*models.Instructor, bool)
	Instructors() []*models.Instructor
	AddCourse(c *models.Course) error
	FindCourse(code string) (*models.Course, bool)
	Courses() []*models.Course
	Offerings() []*models.Offering
	FindOffering(code string) (*models.Offering, bool)
	OfferingsByInstructor(instructorID string) []*models.Offering
	OfferingsOf(student *models.Student) []*models.Offering
}

type operationRecorder interface {
	RecordOperation(operation string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, error) {}

// RegisterStudentRequest describes a new student.
type RegisterStudentRequest struct {
	ID            string `json:"id" validate:"required,excludesall=0x2C;:="`
	Name          string `json:"name" validate:"required"`
	CourseOfStudy string `json:"course_of_study"`
	SpecialStatus bool   `json:"special_status"`
}

// UpdateStudentRequest changes the supplied fields of an existing student.
type UpdateStudentRequest struct {
	ID            string  `json:"id" validate:"required"`
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1"`
	CourseOfStudy *string `json:"course_of_study,omitempty"`
	SpecialStatus *bool   `json:"special_status,omitempty"`
}

// RegisterInstructorRequest describes a new instructor.
type RegisterInstructorRequest struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department"`
}

// RegisterCourseRequest describes a new course.
type RegisterCourseRequest struct {
	Code          string   `json:"code" validate:"required,excludesall=;"`
	Name          string   `json:"name" validate:"required"`
	CreditHours   int      `json:"credit_hours" validate:"gte=0"`
	Prerequisites []string `json:"prerequisites" validate:"dive,excludesall=;"`
}

// OpenOfferingRequest describes a new offering of an existing course.
type OpenOfferingRequest struct {
	Code          string               `json:"code" validate:"required,excludesall=;"`
	CourseCode    string               `json:"course_code" validate:"required"`
	InstructorID  string               `json:"instructor_id" validate:"required"`
	Term          string               `json:"term"`
	GradingScheme models.GradingScheme `json:"grading_scheme" validate:"omitempty,oneof=Scheme1 Scheme2"`
	InPerson      bool                 `json:"in_person"`
	Room          string               `json:"room"`
	Schedule      string               `json:"schedule" validate:"required"`
	Capacity      int                  `json:"capacity" validate:"gte=0"`
	TotalSessions int                  `json:"total_sessions" validate:"gte=0"`
}

// CatalogService registers and lists students, instructors, courses and offerings.
type CatalogService struct {
	catalog   catalogStore
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(catalog catalogStore, metrics operationRecorder, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{catalog: catalog, metrics: metrics, validator: validate, logger: logger}
}

// RegisterStudent adds a student to the catalog.
func (s *CatalogService) RegisterStudent(req RegisterStudentRequest) (student *models.Student, err error) {
	defer func() { s.metrics.RecordOperation("register_student", err) }()
	req.ID = strings.TrimSpace(req.ID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid student payload")
	}
	student, err = models.NewStudent(req.ID, req.Name, req.CourseOfStudy, req.SpecialStatus)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.AddStudent(student); err != nil {
		return nil, err
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.Bool("special_status", student.SpecialStatus))
	return student, nil
}

// UpdateStudent edits name, course of study or special status of a student.
func (s *CatalogService) UpdateStudent(req UpdateStudentRequest) (student *models.Student, err error) {
	defer func() { s.metrics.RecordOperation("update_student", err) }()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid student payload")
	}
	student, ok := s.catalog.FindStudent(req.ID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.CourseOfStudy != nil {
		student.CourseOfStudy = *req.CourseOfStudy
	}
	if req.SpecialStatus != nil {
		student.SpecialStatus = *req.SpecialStatus
	}
	s.logger.Info("student updated", zap.String("student_id", student.ID))
	return student, nil
}

// RegisterInstructor adds an instructor to the catalog.
func (s *CatalogService) RegisterInstructor(req RegisterInstructorRequest) (instructor *models.Instructor, err error) {
	defer func() { s.metrics.RecordOperation("register_instructor", err) }()
	req.ID = strings.TrimSpace(req.ID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid instructor payload")
	}
	instructor, err = models.NewInstructor(req.ID, req.Name, req.Department)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.AddInstructor(instructor); err != nil {
		return nil, err
	}
	s.logger.Info("instructor registered", zap.String("instructor_id", instructor.ID))
	return instructor, nil
}

// RegisterCourse adds a course to the catalog. Prerequisites may name courses
// that are registered later.
func (s *CatalogService) RegisterCourse(req RegisterCourseRequest) (course *models.Course, err error) {
	defer func() { s.metrics.RecordOperation("register_course", err) }()
	req.Code = strings.TrimSpace(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid course payload")
	}
	course, err = models.NewCourse(req.Code, req.Name, req.CreditHours, req.Prerequisites)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.AddCourse(course); err != nil {
		return nil, err
	}
	s.logger.Info("course registered", zap.String("course_code", course.Code), zap.Strings("prerequisites", course.Prerequisites))
	return course, nil
}

// OpenOffering creates an offering and attaches it to its course.
func (s *CatalogService) OpenOffering(req OpenOfferingRequest) (offering *models.Offering, err error) {
	defer func() { s.metrics.RecordOperation("open_offering", err) }()
	req.Code = strings.TrimSpace(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid offering payload")
	}
	course, ok := s.catalog.FindCourse(req.CourseCode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	instructor, ok := s.catalog.FindInstructor(req.InstructorID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	if _, exists := s.catalog.FindOffering(req.Code); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "offering code already in use: "+req.Code)
	}
	offering, err = models.NewOffering(models.OfferingAttributes{
		Code:          req.Code,
		CourseCode:    course.Code,
		InstructorID:  instructor.ID,
		Term:          req.Term,
		GradingScheme: req.GradingScheme,
		InPerson:      req.InPerson,
		Room:          req.Room,
		Schedule:      req.Schedule,
		Capacity:      req.Capacity,
		TotalSessions: req.TotalSessions,
	})
	if err != nil {
		return nil, err
	}
	if !course.AddOffering(offering) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course "+course.Code+" already has an offering scheduled at "+req.Schedule)
	}
	s.logger.Info("offering opened",
		zap.String("offering_code", offering.Code),
		zap.String("course_code", course.Code),
		zap.String("instructor_id", instructor.ID),
		zap.Int("capacity", offering.Capacity),
	)
	return offering, nil
}

// CloseOffering removes an offering and its roster from its course.
func (s *CatalogService) CloseOffering(code string) (err error) {
	defer func() { s.metrics.RecordOperation("close_offering", err) }()
	if strings.TrimSpace(code) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "offering code required")
	}
	offering, ok := s.catalog.FindOffering(code)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
	}
	course, ok := s.catalog.FindCourse(offering.CourseCode)
	if !ok {
		return appErrors.Clone(appErrors.ErrInternal, "offering "+offering.Code+" has no owning course")
	}
	course.RemoveOffering(offering)
	s.logger.Info("offering closed", zap.String("offering_code", offering.Code), zap.Int("dropped_students", offering.Enrolled()))
	return nil
}

// Students lists all students.
func (s *CatalogService) Students() []*models.Student {
	return s.catalog.Students()
}

// Instructors lists all instructors.
func (s *CatalogService) Instructors() []*models.Instructor {
	return s.catalog.Instructors()
}

// Courses lists all courses.
func (s *CatalogService) Courses() []*models.Course {
	return s.catalog.Courses()
}

// Offerings lists offerings, limited to one course when courseCode is set.
func (s *CatalogService) Offerings(courseCode string) ([]*models.Offering, error) {
	if strings.TrimSpace(courseCode) == "" {
		return s.catalog.Offerings(), nil
	}
	course, ok := s.catalog.FindCourse(courseCode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course.Offerings(), nil
}
