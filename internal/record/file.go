package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

// CompressedExt marks run files written through an lz4 frame.
const CompressedExt = ".lz4"

const bufSize = 256 << 10

// IsCompressed reports whether path names an lz4-compressed record file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedExt)
}

// Writer appends records to a file. Paths ending in CompressedExt are
// written as an lz4 frame.
type Writer struct {
	path  string
	f     *os.File
	bw    *bufio.Writer
	zw    *lz4.Writer
	buf   [Size]byte
	count int64
}

// Create truncates or creates path for writing.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating record file %s: %w", path, err)
	}
	w := &Writer{path: path, f: f}
	if IsCompressed(path) {
		w.zw = lz4.NewWriter(f)
		w.bw = bufio.NewWriterSize(w.zw, bufSize)
	} else {
		w.bw = bufio.NewWriterSize(f, bufSize)
	}
	return w, nil
}

func (w *Writer) Write(r Record) error {
	Encode(w.buf[:], r)
	if _, err := w.bw.Write(w.buf[:]); err != nil {
		return fmt.Errorf("writing record to %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// WriteAll writes every record in recs.
func (w *Writer) WriteAll(recs []Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() int64 { return w.count }

// Close flushes buffered records and closes the file. The file is always
// closed, even when flushing fails.
func (w *Writer) Close() error {
	err := w.bw.Flush()
	if w.zw != nil {
		err = errors.Join(err, w.zw.Close())
	}
	err = errors.Join(err, w.f.Close())
	if err != nil {
		return fmt.Errorf("closing record file %s: %w", w.path, err)
	}
	return nil
}

// Reader streams records from a file written by Writer.
type Reader struct {
	path string
	f    *os.File
	br   *bufio.Reader
	buf  [Size]byte
}

// Open opens path for reading. A plain file whose length is not a multiple
// of Size is rejected as corrupt.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrRunFileMissing, apperrors.StageMerge, "%s: %v", path, err)
	}
	r := &Reader{path: path, f: f}
	if IsCompressed(path) {
		r.br = bufio.NewReaderSize(lz4.NewReader(f), bufSize)
		return r, nil
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrRunFileMissing, apperrors.StageMerge, "%s: %v", path, err)
	}
	if info.Size()%Size != 0 {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrCorruptRunFile, apperrors.StageMerge,
			"%s: size %d is not a multiple of %d", path, info.Size(), Size)
	}
	r.br = bufio.NewReaderSize(f, bufSize)
	return r, nil
}

// Read returns the next record, or io.EOF at a clean end of file. A file that
// ends mid-record yields ErrCorruptRunFile.
func (r *Reader) Read() (Record, error) {
	_, err := io.ReadFull(r.br, r.buf[:])
	switch {
	case err == nil:
		return Decode(r.buf[:]), nil
	case errors.Is(err, io.EOF):
		return Record{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Record{}, apperrors.Newf(apperrors.ErrCorruptRunFile, apperrors.StageMerge, "%s: truncated record", r.path)
	default:
		return Record{}, apperrors.Newf(apperrors.ErrCorruptRunFile, apperrors.StageMerge, "%s: %v", r.path, err)
	}
}

func (r *Reader) Path() string { return r.path }

func (r *Reader) Close() error { return r.f.Close() }

// ReadFile loads every record of path into memory.
func ReadFile(path string) ([]Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var recs []Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// WriteFile writes recs to path, replacing any existing file.
func WriteFile(path string, recs []Record) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteAll(recs); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
