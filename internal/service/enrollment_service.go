package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/models"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// EnrollRequest describes an enrollment of a student into one offering of a course.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	CourseCode   string `json:"course_code" validate:"required"`
	OfferingCode string `json:"offering_code" validate:"required"`
}

// LeaveResult reports the outcome of a leave toggle.
type LeaveResult struct {
	OnLeave   bool
	Withdrawn int
}

// EnrollmentService orchestrates enrollment, withdrawal and leave workflows.
type EnrollmentService struct {
	catalog   catalogStore
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(catalog catalogStore, metrics operationRecorder, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{catalog: catalog, metrics: metrics, validator: validate, logger: logger}
}

// Enroll places a student in the requested offering after checking leave
// status, prerequisites and the special-status cap.
func (s *EnrollmentService) Enroll(req EnrollRequest) (offering *models.Offering, err error) {
	defer func() { s.metrics.RecordOperation("enroll", err) }()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid enrollment payload")
	}
	student, ok := s.catalog.FindStudent(req.StudentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.OnLeave {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student "+student.ID+" is on leave of absence")
	}
	course, ok := s.catalog.FindCourse(req.CourseCode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	eligibility := course.CanStudentEnroll(student, s.CompletedCourses(student))
	s.logger.Debug("enrollment eligibility",
		zap.String("student_id", student.ID),
		zap.String("course_code", course.Code),
		zap.Bool("allowed", eligibility.Allowed),
		zap.Strings("missing_prerequisites", eligibility.MissingPrerequisites),
		zap.Bool("special_status_cap_reached", eligibility.SpecialStatusCapReached),
	)
	if !s.PrerequisitesSatisfied(student, course) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "missing prerequisites: "+strings.Join(eligibility.MissingPrerequisites, ", "))
	}
	if !eligibility.Allowed {
		s.logger.Warn("special-status enrollment cap reached", zap.String("student_id", student.ID), zap.String("course_code", course.Code))
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "special-status students may hold at most 2 offerings of a course")
	}

	offering, ok = course.Offering(req.OfferingCode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found in course "+course.Code)
	}
	if offering.IsEnrolled(student) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in "+offering.Code)
	}
	if !offering.Enroll(student) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "offering "+offering.Code+" is full")
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("offering_code", offering.Code),
		zap.Int("open_seats", offering.OpenSeats()),
	)
	return offering, nil
}

// WithdrawFromCourse removes a student from every offering of a course and
// returns how many offerings were left.
func (s *EnrollmentService) WithdrawFromCourse(studentID, courseCode string) (withdrawn int, err error) {
	defer func() { s.metrics.RecordOperation("withdraw", err) }()
	student, ok := s.catalog.FindStudent(studentID)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	course, ok := s.catalog.FindCourse(courseCode)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	for _, o := range course.Offerings() {
		if o.IsEnrolled(student) {
			o.Withdraw(student)
			withdrawn++
		}
	}
	if withdrawn == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotEnrolled, "student "+student.ID+" is not enrolled in course "+course.Code)
	}
	s.logger.Info("student withdrew from course", zap.String("student_id", student.ID), zap.String("course_code", course.Code), zap.Int("offerings", withdrawn))
	return withdrawn, nil
}

// RequestLeaveOfAbsence toggles the leave flag. Entering leave withdraws the
// student from every offering; returning does not restore them.
func (s *EnrollmentService) RequestLeaveOfAbsence(studentID string) (result LeaveResult, err error) {
	defer func() { s.metrics.RecordOperation("leave", err) }()
	student, ok := s.catalog.FindStudent(studentID)
	if !ok {
		return LeaveResult{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.OnLeave {
		student.OnLeave = false
		s.logger.Info("student returned from leave", zap.String("student_id", student.ID))
		return LeaveResult{}, nil
	}
	student.OnLeave = true
	for _, o := range s.catalog.OfferingsOf(student) {
		o.Withdraw(student)
		result.Withdrawn++
	}
	result.OnLeave = true
	s.logger.Info("student entered leave", zap.String("student_id", student.ID), zap.Int("withdrawn", result.Withdrawn))
	return result, nil
}

// PrerequisitesSatisfied reports whether, for every prerequisite of course,
// the student holds an approved outcome in one of that course's offerings.
func (s *EnrollmentService) PrerequisitesSatisfied(student *models.Student, course *models.Course) bool {
	for _, code := range course.Prerequisites {
		prereq, ok := s.catalog.FindCourse(code)
		if !ok || !approvedIn(prereq, student) {
			return false
		}
	}
	return true
}

// CompletedCourses returns the codes of all courses the student passed.
func (s *EnrollmentService) CompletedCourses(student *models.Student) []string {
	var codes []string
	for _, course := range s.catalog.Courses() {
		if approvedIn(course, student) {
			codes = append(codes, course.Code)
		}
	}
	return codes
}

func approvedIn(course *models.Course, student *models.Student) bool {
	for _, o := range course.Offerings() {
		if o.IsEnrolled(student) && o.Outcome(student) == models.OutcomeApproved {
			return true
		}
	}
	return false
}
