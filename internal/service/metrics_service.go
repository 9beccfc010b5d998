package service

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/academic-records/internal/models"
	"github.com/noah-isme/academic-records/internal/repository"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// MetricsService holds the Prometheus collectors of a command run. The
// registry is written to a node-exporter textfile when the run ends.
type MetricsService struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	rowsLoaded  *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec
	rowsDropped *prometheus.CounterVec
	entities    *prometheus.GaugeVec
	enrollments *prometheus.GaugeVec
	outcomes    *prometheus.GaugeVec
}

// NewMetricsService registers the collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academic_operations_total",
		Help: "Domain operations by name and result code",
	}, []string{"operation", "result"})

	rowsLoaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academic_rows_loaded_total",
		Help: "Persisted rows loaded per table",
	}, []string{"table"})

	rowsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academic_rows_skipped_total",
		Help: "Malformed persisted rows or cell entries skipped per table",
	}, []string{"table"})

	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academic_rows_dropped_total",
		Help: "Persisted rows dropped for unresolved references per table",
	}, []string{"table"})

	entities := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "academic_entities",
		Help: "Registered entities by kind",
	}, []string{"kind"})

	enrollments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "academic_offering_enrolled",
		Help: "Roster size per offering",
	}, []string{"offering", "course"})

	outcomes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "academic_outcomes",
		Help: "Rostered students by evaluation outcome",
	}, []string{"outcome"})

	registry.MustRegister(operations, rowsLoaded, rowsSkipped, rowsDropped, entities, enrollments, outcomes)

	return &MetricsService{
		registry:    registry,
		operations:  operations,
		rowsLoaded:  rowsLoaded,
		rowsSkipped: rowsSkipped,
		rowsDropped: rowsDropped,
		entities:    entities,
		enrollments: enrollments,
		outcomes:    outcomes,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation counts an operation under "ok" or the lower-cased error code.
func (m *MetricsService) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = strings.ToLower(appErrors.FromError(err).Code)
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

// ObserveLoad records the statistics of one decoded table.
func (m *MetricsService) ObserveLoad(report repository.LoadReport) {
	if m == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(report.Table).Add(float64(report.Loaded))
	m.rowsSkipped.WithLabelValues(report.Table).Add(float64(len(report.Skipped)))
	m.rowsDropped.WithLabelValues(report.Table).Add(float64(len(report.Dropped)))
}

// ObserveCatalog snapshots entity counts, roster sizes and outcomes.
func (m *MetricsService) ObserveCatalog(catalog catalogStore) {
	if m == nil {
		return
	}
	offerings := catalog.Offerings()
	m.entities.WithLabelValues("student").Set(float64(len(catalog.Students())))
	m.entities.WithLabelValues("instructor").Set(float64(len(catalog.Instructors())))
	m.entities.WithLabelValues("course").Set(float64(len(catalog.Courses())))
	m.entities.WithLabelValues("offering").Set(float64(len(offerings)))

	m.enrollments.Reset()
	counts := map[models.Outcome]int{
		models.OutcomeApproved:         0,
		models.OutcomeFailedAttendance: 0,
		models.OutcomeFailedGrade:      0,
	}
	for _, o := range offerings {
		m.enrollments.WithLabelValues(o.Code, o.CourseCode).Set(float64(o.Enrolled()))
		for _, s := range o.Roster() {
			counts[o.Outcome(s)]++
		}
	}
	for outcome, n := range counts {
		m.outcomes.WithLabelValues(strings.ToLower(string(outcome))).Set(float64(n))
	}
}

// WriteTextfile dumps the registry in the text exposition format, replacing
// path atomically.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
