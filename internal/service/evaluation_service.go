package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/models"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// GradeRequest records one assessment score.
type GradeRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	OfferingCode string  `json:"offering_code" validate:"required"`
	Label        string  `json:"label" validate:"required,excludesall=0x2C;:="`
	Score        float64 `json:"score"`
}

// AbsenceRequest records Count absences at once.
type AbsenceRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	OfferingCode string `json:"offering_code" validate:"required"`
	Count        int    `json:"count" validate:"gt=0"`
	// Force records absences beyond the allowance or the session count.
	Force bool `json:"force"`
}

// AbsenceSummary is the attendance position of a student after recording absences.
type AbsenceSummary struct {
	Absences           int     `json:"absences"`
	TotalSessions      int     `json:"total_sessions"`
	Allowance          int     `json:"allowance"`
	AttendanceRate     float64 `json:"attendance_rate"`
	FailedByAttendance bool    `json:"failed_by_attendance"`
}

// EvaluationService records grades and absences.
type EvaluationService struct {
	catalog   catalogStore
	metrics   operationRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(catalog catalogStore, metrics operationRecorder, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{catalog: catalog, metrics: metrics, validator: validate, logger: logger}
}

func (s *EvaluationService) resolve(studentID, offeringCode string) (*models.Student, *models.Offering, error) {
	student, ok := s.catalog.FindStudent(studentID)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	offering, ok := s.catalog.FindOffering(offeringCode)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
	}
	return student, offering, nil
}

// RecordGrade stores a score, replacing any earlier score for the same label.
func (s *EvaluationService) RecordGrade(req GradeRequest) (err error) {
	defer func() { s.metrics.RecordOperation("grade", err) }()
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid grade payload")
	}
	student, offering, err := s.resolve(req.StudentID, req.OfferingCode)
	if err != nil {
		return err
	}
	label := strings.TrimSpace(req.Label)
	if err := offering.RecordGrade(student, label, req.Score); err != nil {
		return err
	}
	s.logger.Info("grade recorded",
		zap.String("student_id", student.ID),
		zap.String("offering_code", offering.Code),
		zap.String("label", label),
		zap.Float64("score", req.Score),
	)
	return nil
}

// RecordAbsences adds Count absences. Requests that would take the student past
// the absence allowance or the number of sessions are refused unless forced.
// A single request never records more absences than the offering has sessions.
func (s *EvaluationService) RecordAbsences(req AbsenceRequest) (summary AbsenceSummary, err error) {
	defer func() { s.metrics.RecordOperation("absence", err) }()
	if err := s.validator.Struct(req); err != nil {
		return AbsenceSummary{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid absence payload")
	}
	student, offering, err := s.resolve(req.StudentID, req.OfferingCode)
	if err != nil {
		return AbsenceSummary{}, err
	}
	if !offering.IsEnrolled(student) {
		return AbsenceSummary{}, appErrors.ErrNotEnrolled
	}

	current := offering.Absences(student)
	allowance := offering.AbsenceAllowance()
	if req.Count > offering.TotalSessions {
		return AbsenceSummary{}, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("%d absences exceed the %d sessions of %s", req.Count, offering.TotalSessions, offering.Code))
	}
	if !req.Force {
		if req.Count > offering.TotalSessions-current {
			return AbsenceSummary{}, appErrors.Clone(appErrors.ErrPreconditionFailed,
				fmt.Sprintf("%d absences would exceed the %d sessions of %s", current+req.Count, offering.TotalSessions, offering.Code))
		}
		if req.Count > allowance-current {
			return AbsenceSummary{}, appErrors.Clone(appErrors.ErrPreconditionFailed,
				fmt.Sprintf("%d absences would exceed the allowance of %d and fail %s by attendance", current+req.Count, allowance, student.ID))
		}
	} else if req.Count > allowance-current {
		s.logger.Warn("absences recorded beyond allowance",
			zap.String("student_id", student.ID),
			zap.String("offering_code", offering.Code),
			zap.Int("absences", current+req.Count),
			zap.Int("allowance", allowance),
		)
	}

	for i := 0; i < req.Count; i++ {
		if err := offering.RecordAbsence(student); err != nil {
			return AbsenceSummary{}, err
		}
	}
	rate := offering.AttendanceRate(student)
	summary = AbsenceSummary{
		Absences:           offering.Absences(student),
		TotalSessions:      offering.TotalSessions,
		Allowance:          allowance,
		AttendanceRate:     rate,
		FailedByAttendance: rate < models.MinimumAttendance,
	}
	s.logger.Info("absences recorded", zap.String("student_id", student.ID), zap.String("offering_code", offering.Code), zap.Int("count", req.Count))
	return summary, nil
}
