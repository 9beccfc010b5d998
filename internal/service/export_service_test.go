package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
	"github.com/noah-isme/academic-records/pkg/export"
	"github.com/noah-isme/academic-records/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *fixture) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := newFixture(t)
	svc := NewExportService(store, export.NewCSVExporter(), export.NewPDFExporter(), f.metrics, zap.NewNop())
	return svc, store, f
}

func TestExportServiceExportCSV(t *testing.T) {
	svc, _, f := newExportServiceForTest(t)
	f.approve(t, "S1", "C1-T1")
	report, err := NewReportService(f.catalog, nil).OfferingReport("C1-T1")
	require.NoError(t, err)

	result, err := svc.Export(report, ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, ReportFormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.RelativePath, "offering_c1-t1_-_intro_ada_lovelace_"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	body, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Student ID,Name,Average,Attendance,Absences,Outcome\nS1,Ana,6.00,100.0%,0,Approved\n"))
	assert.Equal(t, len(body), result.Size)
}

func TestExportServiceExportPDF(t *testing.T) {
	svc, _, f := newExportServiceForTest(t)
	report, err := NewReportService(f.catalog, nil).InstructorReport("I1")
	require.NoError(t, err)

	first, err := svc.Export(report, ReportFormatPDF)
	require.NoError(t, err)
	second, err := svc.Export(report, ReportFormatPDF)
	require.NoError(t, err)
	assert.NotEqual(t, first.RelativePath, second.RelativePath)

	body, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, store, f := newExportServiceForTest(t)
	report, err := NewReportService(f.catalog, nil).CourseReport("C1")
	require.NoError(t, err)

	_, err = svc.Export(report, ReportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	entries, err := os.ReadDir(filepath.Dir(store.Path("x")))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = ParseReportFormat("xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	format, err := ParseReportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatPDF, format)
}

func TestExportServiceCleanup(t *testing.T) {
	svc, store, f := newExportServiceForTest(t)
	report, err := NewReportService(f.catalog, nil).StudentReport("S1")
	require.NoError(t, err)
	result, err := svc.Export(report, ReportFormatCSV)
	require.NoError(t, err)

	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(result.RelativePath), past, past))

	deleted, err := svc.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{result.RelativePath}, deleted)

	_, err = svc.Cleanup(0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report", sanitizeFilename("  "))
	assert.Equal(t, "student_s1_-_jo_o", sanitizeFilename("Student S1 - João"))
	assert.Equal(t, "report", sanitizeFilename("///"))
}
