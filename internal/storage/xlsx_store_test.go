package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniqtext/internal/model"
)

func sampleRow(url string) model.OutputRow {
	return model.OutputRow{
		URL:             url,
		Title:           "Новое название",
		Brand:           "Woodpecker",
		Country:         "Китай",
		Article:         "WP-G1",
		MetaTitle:       "Купить X | Dental First",
		Keywords:        "наконечник, ультразвук",
		MetaDescription: "X в интернет-магазине Dental First.",
		Short:           "Слоган",
		BaseDesc:        "Коротко",
		DetailDesc:      "#Раздел\nТекст",
	}
}

func TestAppendCreatesTableWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	s := NewXLSXStore(path)

	require.NoError(t, s.Append(context.Background(), sampleRow("https://shop/a")))
	require.NoError(t, s.Append(context.Background(), sampleRow("https://shop/b")))

	rows, err := s.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.Columns, rows[0])
	assert.Equal(t, sampleRow("https://shop/a").Values(), rows[1])
	assert.Equal(t, "https://shop/b", rows[2][0])
}

func TestAppendKeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	require.NoError(t, NewXLSXStore(path).Append(context.Background(), sampleRow("https://shop/first-run")))

	// a later run uses a fresh store on the same file
	s := NewXLSXStore(path)
	require.NoError(t, s.Append(context.Background(), sampleRow("https://shop/second-run")))

	rows, err := s.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "https://shop/first-run", rows[1][0])
	assert.Equal(t, "https://shop/second-run", rows[2][0])
}

func TestConcurrentAppends(t *testing.T) {
	const n = 16
	path := filepath.Join(t.TempDir(), "products.xlsx")
	s := NewXLSXStore(path)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Append(context.Background(), sampleRow(fmt.Sprintf("https://shop/%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := s.Rows()
	require.NoError(t, err)
	require.Len(t, rows, n+1)

	seen := make(map[string]int)
	for _, r := range rows[1:] {
		require.Len(t, r, len(model.Columns))
		seen[r[0]]++
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("https://shop/%d", i)])
	}
}

func TestAppendFailuresDoNotTouchTable(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "products.xlsx")
		err := NewXLSXStore(path).Append(context.Background(), sampleRow("https://shop/a"))
		require.ErrorIs(t, err, ErrPersist)
		assert.NoFileExists(t, path)
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "products.xlsx")
		require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

		err := NewXLSXStore(path).Append(context.Background(), sampleRow("https://shop/a"))
		require.ErrorIs(t, err, ErrPersist)

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "not a workbook", string(b))
	})

	t.Run("cancelled context", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "products.xlsx")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewXLSXStore(path).Append(ctx, sampleRow("https://shop/a"))
		require.ErrorIs(t, err, ErrPersist)
		assert.NoFileExists(t, path)
	})
}

type fakeLocker struct {
	err     error
	held    atomic.Int32
	maxHeld atomic.Int32
	locks   atomic.Int32
}

func (l *fakeLocker) Lock(ctx context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks.Add(1)
	if h := l.held.Add(1); h > l.maxHeld.Load() {
		l.maxHeld.Store(h)
	}
	return func() { l.held.Add(-1) }, nil
}

func TestAppendUsesLocker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	l := &fakeLocker{}
	s := NewXLSXStore(path, WithLocker(l))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(context.Background(), sampleRow(fmt.Sprintf("https://shop/%d", i))))
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 4, l.locks.Load())
	assert.EqualValues(t, 1, l.maxHeld.Load())
	assert.EqualValues(t, 0, l.held.Load())
}

func TestAppendLockerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	s := NewXLSXStore(path, WithLocker(&fakeLocker{err: errors.New("redis down")}))

	err := s.Append(context.Background(), sampleRow("https://shop/a"))
	require.ErrorIs(t, err, ErrPersist)
	assert.Contains(t, err.Error(), "redis down")
	assert.NoFileExists(t, path)
}

func TestAppendKeepsFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	s := NewXLSXStore(path)

	require.NoError(t, s.Append(context.Background(), sampleRow("https://shop/a")))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o664))
	require.NoError(t, s.Append(context.Background(), sampleRow("https://shop/b")))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o664), info.Mode().Perm())
}
