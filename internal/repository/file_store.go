package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// LoadObserver receives per table load statistics.
type LoadObserver interface {
	ObserveLoad(report LoadReport)
}

// FileStore loads and saves the catalog as four delimited text tables.
type FileStore struct {
	storage  fileStorage
	codec    *Codec
	observer LoadObserver
	logger   *zap.Logger
}

// NewFileStore constructs a FileStore over storage.
func NewFileStore(storage fileStorage, observer LoadObserver, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{storage: storage, codec: NewCodec(), observer: observer, logger: logger}
}

func fileName(table string) string {
	return table + ".csv"
}

type decodeFunc func(io.Reader, *Catalog) (LoadReport, error)

type encodeFunc func(io.Writer, *Catalog) error

// Load reads instructors, courses, students and offerings in that order so
// offerings can resolve their references. Missing files count as empty tables
// and malformed rows are logged and skipped.
func (s *FileStore) Load() (*Catalog, error) {
	catalog := NewCatalog()
	steps := []struct {
		table  string
		decode decodeFunc
	}{
		{TableInstructors, s.codec.DecodeInstructors},
		{TableCourses, s.codec.DecodeCourses},
		{TableStudents, s.codec.DecodeStudents},
		{TableOfferings, s.codec.DecodeOfferings},
	}
	for _, step := range steps {
		if err := s.loadTable(catalog, step.table, step.decode); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (s *FileStore) loadTable(catalog *Catalog, table string, decode decodeFunc) error {
	file, err := s.storage.Open(fileName(table))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("table file missing, starting empty", zap.String("table", table))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "open "+table)
	}
	defer file.Close() //nolint:errcheck

	report, err := decode(file, catalog)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "load "+table)
	}
	for _, rowErr := range report.Skipped {
		s.logger.Warn("skipping malformed row", zap.String("table", rowErr.Table), zap.Int("line", rowErr.Line), zap.String("reason", rowErr.Reason))
	}
	for _, rowErr := range report.Dropped {
		s.logger.Debug("dropping offering with unresolved reference", zap.Int("line", rowErr.Line), zap.String("reason", rowErr.Reason))
	}
	s.logger.Info("table loaded", zap.String("table", table), zap.Int("rows", report.Loaded), zap.Int("skipped", len(report.Skipped)), zap.Int("dropped", len(report.Dropped)))
	if s.observer != nil {
		s.observer.ObserveLoad(report)
	}
	return nil
}

// Save overwrites all four tables with the catalog contents.
func (s *FileStore) Save(catalog *Catalog) error {
	steps := []struct {
		table  string
		encode encodeFunc
	}{
		{TableStudents, s.codec.EncodeStudents},
		{TableCourses, s.codec.EncodeCourses},
		{TableInstructors, s.codec.EncodeInstructors},
		{TableOfferings, s.codec.EncodeOfferings},
	}
	for _, step := range steps {
		buf := &bytes.Buffer{}
		if err := step.encode(buf, catalog); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "encode "+step.table)
		}
		if _, err := s.storage.Save(fileName(step.table), buf.Bytes()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "save "+step.table)
		}
	}
	s.logger.Debug("catalog saved",
		zap.Int("students", len(catalog.Students())),
		zap.Int("courses", len(catalog.Courses())),
		zap.Int("instructors", len(catalog.Instructors())),
		zap.Int("offerings", len(catalog.Offerings())),
	)
	return nil
}

// Clear removes all four table files.
func (s *FileStore) Clear() error {
	for _, table := range []string{TableStudents, TableCourses, TableInstructors, TableOfferings} {
		if err := s.storage.Delete(fileName(table)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, fmt.Sprintf("clear %s", table))
		}
	}
	return nil
}
