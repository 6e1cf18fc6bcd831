package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"uniqtext/internal/model"
)

// ErrPersist marks a failed read or write of the output table.
var ErrPersist = errors.New("persist error")

// Locker guards the workbook across processes. Lock blocks until the lock is
// held or ctx is done.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// XLSXStore appends rows to a single workbook. Every append loads the whole
// file, adds one row and writes the whole file back; appends are serialized
// by the store's mutex, which is never held across network calls. The new
// content is written to a temporary file and renamed over the old one, so a
// failed append leaves the previous table untouched.
//
// Rewriting the full file on each append is fine for a handful of rows per
// run; it does not scale to large tables.
type XLSXStore struct {
	path   string
	mu     sync.Mutex
	locker Locker
	logger *slog.Logger
}

type Option func(*XLSXStore)

// WithLocker adds a cross-process lock taken inside the store's mutex.
func WithLocker(l Locker) Option {
	return func(s *XLSXStore) { s.locker = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *XLSXStore) { s.logger = l }
}

func NewXLSXStore(path string, opts ...Option) *XLSXStore {
	s := &XLSXStore{path: path, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *XLSXStore) Path() string { return s.path }

func (s *XLSXStore) Append(ctx context.Context, row model.OutputRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx)
		if err != nil {
			return fmt.Errorf("%w: lock %s: %w", ErrPersist, s.path, err)
		}
		defer unlock()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, s.path, err)
	}

	if err := s.appendRow(row.Values()); err != nil {
		s.logger.Error("failed to save row", "path", s.path, "url", row.URL, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrPersist, s.path, err)
	}
	return nil
}

// Rows returns every row of the table, header included.
func (s *XLSXStore) Rows() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sheet, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, s.path, err)
	}
	return rows, nil
}

func (s *XLSXStore) appendRow(values []string) error {
	f, sheet, err := s.load()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		header := append([]string(nil), model.Columns...)
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		next = 2
	}

	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", next, err)
	}

	return s.save(f)
}

// load opens the workbook, or starts an empty one when the file does not exist yet.
func (s *XLSXStore) load() (*excelize.File, string, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		f := excelize.NewFile()
		return f, f.GetSheetName(0), nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("open: %w", err)
	}
	return f, f.GetSheetName(0), nil
}

func (s *XLSXStore) save(f *excelize.File) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".uniqtext-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod workbook: %w", err)
	}

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}
