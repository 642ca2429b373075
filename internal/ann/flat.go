package ann

import (
	"fmt"
	"io"
	"os"

	"bitharbor/internal/vector"
)

// Flat is the append-only file of fixed-width float32 rows backing the
// graph. Row identifiers are positions: row N occupies bytes
// [N*rowWidth, (N+1)*rowWidth). The file is the durable source of truth
// for vectors; the graph can always be rebuilt from it.
type Flat struct {
	file     *os.File
	path     string
	dims     int
	rowWidth int64
	rows     int64
}

// OpenFlat opens or creates the flat vector file. A partial tail row left
// by an interrupted append is truncated away so the file always holds a
// whole number of rows.
func OpenFlat(path string, dims int) (*Flat, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flat file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat flat file: %w", err)
	}

	rowWidth := int64(dims) * 4
	size := info.Size()
	if remainder := size % rowWidth; remainder != 0 {
		size -= remainder
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, fmt.Errorf("trim partial row: %w", err)
		}
	}

	return &Flat{
		file:     file,
		path:     path,
		dims:     dims,
		rowWidth: rowWidth,
		rows:     size / rowWidth,
	}, nil
}

// Count returns the number of whole rows in the file.
func (f *Flat) Count() int64 {
	return f.rows
}

// Dims returns the per-row dimensionality.
func (f *Flat) Dims() int {
	return f.dims
}

// Append writes a vector at the end of the file and returns its row
// identifier. The write is synced before the identifier is handed out, so
// a returned row is durable.
func (f *Flat) Append(vec []float32) (int64, error) {
	if len(vec) != f.dims {
		return 0, &vector.ErrDimensionMismatch{Expected: f.dims, Actual: len(vec)}
	}
	rowID := f.rows
	if _, err := f.file.WriteAt(vector.Encode(vec), rowID*f.rowWidth); err != nil {
		return 0, fmt.Errorf("append row %d: %w", rowID, err)
	}
	if err := f.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync flat file: %w", err)
	}
	f.rows++
	return rowID, nil
}

// ReadRow reads one vector by row identifier.
func (f *Flat) ReadRow(rowID int64) ([]float32, error) {
	if rowID < 0 || rowID >= f.rows {
		return nil, fmt.Errorf("row %d out of range [0,%d)", rowID, f.rows)
	}
	buf := make([]byte, f.rowWidth)
	if _, err := f.file.ReadAt(buf, rowID*f.rowWidth); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read row %d: %w", rowID, err)
	}
	return vector.Decode(buf, f.dims)
}

// Truncate discards rows at and beyond the given count. Used on startup to
// drop tail rows that never got a durable digest mapping.
func (f *Flat) Truncate(rows int64) error {
	if rows < 0 || rows > f.rows {
		return fmt.Errorf("truncate to %d rows out of range [0,%d]", rows, f.rows)
	}
	if err := f.file.Truncate(rows * f.rowWidth); err != nil {
		return fmt.Errorf("truncate flat file: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("sync flat file: %w", err)
	}
	f.rows = rows
	return nil
}

// Close releases the underlying file handle.
func (f *Flat) Close() error {
	return f.file.Close()
}
