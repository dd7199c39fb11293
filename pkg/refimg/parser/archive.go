package parser

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidContainer indicates the input is not an OOXML zip package.
var ErrInvalidContainer = errors.New("not a valid xlsx container")

// ErrTooLarge indicates the input exceeds the configured size ceiling.
var ErrTooLarge = errors.New("workbook exceeds size limit")

// ErrPartNotFound indicates a named part is absent from the package.
var ErrPartNotFound = errors.New("part not found")

// ErrPartTooLarge indicates a part decompresses beyond the per-part limit.
var ErrPartTooLarge = errors.New("part exceeds size limit")

// ErrSheetNotFound indicates the requested worksheet does not exist.
var ErrSheetNotFound = errors.New("worksheet not found")

// FormatError represents a malformed or unreadable workbook.
type FormatError struct {
	Part string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("invalid workbook: %v", e.Err)
	}
	return fmt.Sprintf("invalid workbook part %q: %v", e.Part, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(part string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	return &FormatError{Part: part, Err: err}
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Name is the display name of the workbook, usually the uploaded file name.
	Name string
	// MaxSize is the ceiling on the compressed workbook size. Zero means no limit.
	MaxSize int64
	// MaxPartSize is the ceiling on a single decompressed part. Zero uses DefaultMaxPartSize.
	MaxPartSize int64
	// TempDir is where the workbook is spooled. Empty uses os.TempDir().
	TempDir string
}

// DefaultMaxPartSize bounds decompressed part reads.
const DefaultMaxPartSize = 256 << 20

// Workbook is an opened workbook package. It owns a temporary copy of the
// input and must be closed to release it.
type Workbook struct {
	Name string

	path    string
	zr      *zip.ReadCloser
	parts   map[string]*zip.File
	maxPart int64

	excelOnce sync.Once
	excel     *excelize.File
	excelErr  error

	ctOnce sync.Once
	ct     *contentTypes
	ctErr  error

	sheetsOnce sync.Once
	sheets     []SheetInfo
	sheetsErr  error

	closeOnce sync.Once
	closeErr  error
}

// Open spools r to temporary storage and opens it as a zip package.
func Open(r io.Reader, opts OpenOptions) (*Workbook, error) {
	tmp, err := os.CreateTemp(opts.TempDir, "refimg-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("create temp workbook: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { os.Remove(path) }

	src := r
	if opts.MaxSize > 0 {
		src = io.LimitReader(r, opts.MaxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("spool workbook: %w", err)
	}
	if opts.MaxSize > 0 && n > opts.MaxSize {
		cleanup()
		return nil, &FormatError{Err: fmt.Errorf("%w: more than %d bytes", ErrTooLarge, opts.MaxSize)}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		cleanup()
		return nil, &FormatError{Err: fmt.Errorf("%w: %v", ErrInvalidContainer, err)}
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}
	if _, ok := parts[contentTypesPart]; !ok {
		zr.Close()
		cleanup()
		return nil, &FormatError{Err: fmt.Errorf("%w: missing %s", ErrInvalidContainer, contentTypesPart)}
	}

	maxPart := opts.MaxPartSize
	if maxPart <= 0 {
		maxPart = DefaultMaxPartSize
	}

	return &Workbook{
		Name:    opts.Name,
		path:    path,
		zr:      zr,
		parts:   parts,
		maxPart: maxPart,
	}, nil
}

// HasPart reports whether the package contains the named part.
func (wb *Workbook) HasPart(name string) bool {
	_, ok := wb.parts[name]
	return ok
}

// ReadPart returns the decompressed bytes of a named part.
// It is safe for concurrent use.
func (wb *Workbook) ReadPart(name string) ([]byte, error) {
	f, ok := wb.parts[name]
	if !ok {
		return nil, &FormatError{Part: name, Err: ErrPartNotFound}
	}
	if f.UncompressedSize64 > uint64(wb.maxPart) {
		return nil, &FormatError{Part: name, Err: ErrPartTooLarge}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &FormatError{Part: name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, wb.maxPart+1))
	if err != nil {
		return nil, &FormatError{Part: name, Err: err}
	}
	if int64(len(data)) > wb.maxPart {
		return nil, &FormatError{Part: name, Err: ErrPartTooLarge}
	}
	return data, nil
}

// Excel returns the excelize view of the workbook, opening it on first use.
func (wb *Workbook) Excel() (*excelize.File, error) {
	wb.excelOnce.Do(func() {
		f, err := excelize.OpenFile(wb.path)
		if err != nil {
			wb.excelErr = &FormatError{Err: err}
			return
		}
		wb.excel = f
	})
	return wb.excel, wb.excelErr
}

// Close releases the archive handles and removes the temporary copy.
func (wb *Workbook) Close() error {
	wb.closeOnce.Do(func() {
		var errs []error
		if wb.excel != nil {
			errs = append(errs, wb.excel.Close())
		}
		errs = append(errs, wb.zr.Close())
		if err := os.Remove(wb.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
		wb.closeErr = errors.Join(errs...)
	})
	return wb.closeErr
}
