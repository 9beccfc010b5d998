package handler

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/repository"
	"github.com/noah-isme/academic-records/internal/service"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
	"github.com/noah-isme/academic-records/pkg/storage"
)

type cliEnv struct {
	cli     *CommandLine
	catalog *repository.Catalog
	store   *repository.FileStore
	dataDir string
	out     *bytes.Buffer
}

func setup(t *testing.T, autosave bool) *cliEnv {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	data, err := storage.NewLocalStorage(dataDir)
	require.NoError(t, err)
	exports, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)

	store := repository.NewFileStore(data, nil, zap.NewNop())
	catalog := repository.NewCatalog()
	svc := Services{
		Catalog:    service.NewCatalogService(catalog, nil, nil, nil),
		Enrollment: service.NewEnrollmentService(catalog, nil, nil, nil),
		Evaluation: service.NewEvaluationService(catalog, nil, nil, nil),
		Reports:    service.NewReportService(catalog, nil),
		Exports:    service.NewExportService(exports, nil, nil, nil, nil),
	}
	out := &bytes.Buffer{}
	cli := NewCommandLine(svc, catalog, store, Options{Autosave: autosave}, out, &bytes.Buffer{}, zap.NewNop())
	return &cliEnv{cli: cli, catalog: catalog, store: store, dataDir: dataDir, out: out}
}

func (e *cliEnv) run(t *testing.T, line ...string) {
	t.Helper()
	require.NoError(t, e.cli.Run(line))
}

func (e *cliEnv) seed(t *testing.T) {
	t.Helper()
	e.run(t, "instructor", "add", "-id", "I1", "-name", "Ada Lovelace", "-dept", "Computing")
	e.run(t, "course", "add", "-code", "C1", "-name", "Intro", "-hours", "60")
	e.run(t, "course", "add", "-code", "C2", "-name", "Algorithms", "-hours", "60", "-prereq", "C1")
	e.run(t, "student", "add", "-id", "S1", "-name", "Ana", "-course", "CS")
	e.run(t, "student", "add", "-id", "S2", "-name", "Bruno", "-course", "CS", "-special")
	e.run(t, "offering", "add", "-code", "C1-T1", "-course", "C1", "-instructor", "I1", "-term", "2024.1",
		"-schedule", "Mon 14-16", "-capacity", "1", "-sessions", "10", "-in-person", "-room", "B-101")
}

func TestCommandLineEndToEnd(t *testing.T) {
	env := setup(t, true)
	env.seed(t)

	env.run(t, "enroll", "-student", "S1", "-course", "C1", "-offering", "c1-t1")
	assert.Contains(t, env.out.String(), "Student S1 enrolled in C1-T1 (0 seats left).")

	for _, label := range []string{"P1", "P2", "P3", "L", "S"} {
		env.run(t, "grade", "-student", "S1", "-offering", "C1-T1", "-label", label, "-score", "6")
	}
	env.run(t, "absence", "-student", "S1", "-offering", "C1-T1", "-count", "2")
	assert.Contains(t, env.out.String(), "2 of 10 sessions missed (allowance 3), attendance 80.0%.")

	env.out.Reset()
	env.run(t, "report", "offering", "-id", "C1-T1", "-export", "csv")
	report := env.out.String()
	assert.Contains(t, report, "== Offering C1-T1 - Intro (Ada Lovelace) ==")
	assert.Contains(t, report, "Approved")
	assert.Contains(t, report, "Exported to ")

	reloaded, err := env.store.Load()
	require.NoError(t, err)
	o, ok := reloaded.FindOffering("C1-T1")
	require.True(t, ok)
	s1, ok := reloaded.FindStudent("S1")
	require.True(t, ok)
	assert.True(t, o.IsEnrolled(s1))
	assert.Equal(t, 6.0, o.Average(s1))
	assert.Equal(t, 2, o.Absences(s1))
}

func TestCommandLineErrors(t *testing.T) {
	env := setup(t, false)
	env.seed(t)

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantExit int
	}{
		{"no command", nil, ErrHelp, 0},
		{"unknown command", []string{"graduate"}, ErrHelp, 0},
		{"unknown subcommand", []string{"student", "delete"}, ErrHelp, 0},
		{"bad flag", []string{"student", "add", "-bogus"}, appErrors.ErrValidation, appErrors.ExitValidation},
		{"unknown student", []string{"enroll", "-student", "S9", "-course", "C1", "-offering", "C1-T1"}, appErrors.ErrNotFound, appErrors.ExitNotFound},
		{"missing prerequisite", []string{"enroll", "-student", "S1", "-course", "C2", "-offering", "X"}, appErrors.ErrPreconditionFailed, appErrors.ExitDomainRule},
		{"bad score", []string{"grade", "-student", "S1", "-offering", "C1-T1", "-label", "P1", "-score", "ten"}, appErrors.ErrValidation, appErrors.ExitValidation},
		{"not enrolled", []string{"grade", "-student", "S1", "-offering", "C1-T1", "-label", "P1", "-score", "5"}, appErrors.ErrNotEnrolled, appErrors.ExitDomainRule},
		{"bad export format", []string{"report", "offering", "-id", "C1-T1", "-export", "xlsx"}, appErrors.ErrValidation, appErrors.ExitValidation},
		{"reset without confirm", []string{"reset"}, appErrors.ErrPreconditionFailed, appErrors.ExitDomainRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.cli.Run(tt.args)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantExit != 0 {
				assert.Equal(t, tt.wantExit, appErrors.FromError(err).ExitCode)
			}
		})
	}

	_, err := os.Stat(filepath.Join(env.dataDir, "students.csv"))
	assert.True(t, os.IsNotExist(err), "autosave disabled")
}

func TestCommandLineCapacityAndAbsenceOverride(t *testing.T) {
	env := setup(t, false)
	env.seed(t)
	env.run(t, "enroll", "-student", "S1", "-course", "C1", "-offering", "C1-T1")

	err := env.cli.Run([]string{"enroll", "-student", "S2", "-course", "C1", "-offering", "C1-T1"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	err = env.cli.Run([]string{"absence", "-student", "S1", "-offering", "C1-T1", "-count", "4"})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	env.run(t, "absence", "-student", "S1", "-offering", "C1-T1", "-count", "4", "-force")
	assert.Contains(t, env.out.String(), "fails by attendance")

	err = env.cli.Run([]string{"absence", "-student", "S1", "-offering", "C1-T1", "-count", strconv.Itoa(math.MaxInt), "-force"})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	env.run(t, "grade", "-student", "S1", "-offering", "C1-T1", "-label", " P1 ", "-score", "10")
	o, ok := env.catalog.FindOffering("C1-T1")
	require.True(t, ok)
	s1, ok := env.catalog.FindStudent("S1")
	require.True(t, ok)
	assert.Equal(t, 4, o.Absences(s1))
	assert.Equal(t, map[string]float64{"P1": 10}, o.Grades(s1))
}

func TestCommandLineStudentEditAndLeave(t *testing.T) {
	env := setup(t, false)
	env.seed(t)
	env.run(t, "enroll", "-student", "S2", "-course", "C1", "-offering", "C1-T1")

	env.run(t, "student", "edit", "-id", "S2", "-special=false", "-name", "Bruno Lima")
	s2, ok := env.catalog.FindStudent("S2")
	require.True(t, ok)
	assert.False(t, s2.SpecialStatus)
	assert.Equal(t, "Bruno Lima", s2.Name)
	assert.Equal(t, "CS", s2.CourseOfStudy)

	env.run(t, "leave", "-student", "S2")
	assert.Contains(t, env.out.String(), "withdrawn from 1 offering(s)")
	assert.True(t, s2.OnLeave)

	err := env.cli.Run([]string{"enroll", "-student", "S2", "-course", "C1", "-offering", "C1-T1"})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	env.out.Reset()
	env.run(t, "student", "list")
	assert.Contains(t, env.out.String(), "Bruno Lima")
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	assert.Len(t, lines, 3)
}

func TestCommandLineListingsAndReports(t *testing.T) {
	env := setup(t, false)
	env.seed(t)
	env.run(t, "enroll", "-student", "S1", "-course", "C1", "-offering", "C1-T1")
	env.out.Reset()

	env.run(t, "course", "list")
	env.run(t, "instructor", "list")
	env.run(t, "offering", "list", "-course", "C1")
	env.run(t, "report", "course", "-id", "C1")
	env.run(t, "report", "instructor", "-id", "I1")
	env.run(t, "report", "student", "-id", "S1", "-export", "pdf")
	out := env.out.String()
	assert.Contains(t, out, "C2 Algorithms, 60h, prerequisites: C1, 0 offerings, 0 enrolled")
	assert.Contains(t, out, "I1 Ada Lovelace (Computing)")
	assert.Contains(t, out, "C1-T1 [C1] 2024.1, Mon 14-16, In person (B-101), 1/1 enrolled")
	assert.Contains(t, out, "Needs attention in C1-T1: S1 Ana")
	assert.Contains(t, out, "no grades")
	assert.Contains(t, out, "Total credit hours: 60")
	assert.Contains(t, out, ".pdf")

	env.run(t, "report", "prune", "-older-than", "1h")
	assert.Contains(t, env.out.String(), "Removed 0 export(s).")
}

func TestCommandLineOfferingRemoveAndReset(t *testing.T) {
	env := setup(t, true)
	env.seed(t)

	env.run(t, "offering", "remove", "-code", "C1-T1")
	_, ok := env.catalog.FindOffering("C1-T1")
	assert.False(t, ok)

	env.run(t, "reset", "-confirm")
	assert.Empty(t, env.catalog.Students())
	assert.Empty(t, env.catalog.Courses())
	entries, err := os.ReadDir(env.dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
