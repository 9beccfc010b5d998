package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/academic-records/pkg/storage"
)

type recordingObserver struct {
	reports []LoadReport
}

func (r *recordingObserver) ObserveLoad(report LoadReport) {
	r.reports = append(r.reports, report)
}

func newTestFileStore(t *testing.T, dir string) (*FileStore, *recordingObserver, *observer.ObservedLogs) {
	t.Helper()
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	obs := &recordingObserver{}
	return NewFileStore(local, obs, zap.New(core)), obs, logs
}

func TestFileStoreLoadMissingFiles(t *testing.T) {
	store, obs, _ := newTestFileStore(t, t.TempDir())

	catalog, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, catalog.Students())
	assert.Empty(t, catalog.Courses())
	assert.Empty(t, obs.reports)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, obs, _ := newTestFileStore(t, dir)

	require.NoError(t, store.Save(goldenCatalog(t)))
	for table, want := range map[string]string{
		TableStudents:    goldenStudents,
		TableInstructors: goldenInstructors,
		TableCourses:     goldenCourses,
		TableOfferings:   goldenOfferings,
	} {
		body, err := os.ReadFile(filepath.Join(dir, table+".csv"))
		require.NoError(t, err)
		assert.Equal(t, want, string(body), table)
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Students(), 2)
	assert.Len(t, loaded.Offerings(), 2)
	require.Len(t, obs.reports, 4)
	assert.Equal(t, []string{TableInstructors, TableCourses, TableStudents, TableOfferings},
		[]string{obs.reports[0].Table, obs.reports[1].Table, obs.reports[2].Table, obs.reports[3].Table})
}

func TestFileStoreLogsSkippedAndDroppedRows(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "students.csv"), []byte("name,id,courseOfStudy,isSpecialStatus,onLeave\n\"Ana\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "offerings.csv"), []byte(
		"code,courseCode,instructorId,term,gradingScheme,isInPerson,room,schedule,capacity,totalSessions\nT1,C1,I1,\"t\",Scheme1,true,\"r\",\"Mon\",5,10\n"), 0o644))
	store, _, logs := newTestFileStore(t, dir)

	_, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("skipping malformed row").Len())
	dropped := logs.FilterMessage("dropping offering with unresolved reference").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zap.DebugLevel, dropped[0].Level)
}

func TestFileStoreClear(t *testing.T) {
	dir := t.TempDir()
	store, _, _ := newTestFileStore(t, dir)
	require.NoError(t, store.Save(NewCatalog()))

	require.NoError(t, store.Clear())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
