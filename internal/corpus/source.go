// Package corpus reads the preprocessed, whitespace-tokenised corpus. It
// splits the file into line-aligned byte ranges, one per worker, and streams
// each range back one line at a time.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

var gzipMagic = []byte{0x1f, 0x8b}

const readBufSize = 1 << 20

// Source is an open corpus file. It is safe to scan several ranges of one
// Source concurrently.
type Source struct {
	path    string
	file    *os.File
	size    int64
	gzipped bool
}

// Open opens the corpus at path. Gzip-compressed corpora are recognised by
// their magic bytes.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s: %v", path, err)
	}
	s := &Source{path: path, file: f, size: info.Size()}

	head := make([]byte, len(gzipMagic))
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s: %v", path, err)
	}
	s.gzipped = n == len(gzipMagic) && bytes.Equal(head, gzipMagic)

	adviseSequential(f, s.size)
	return s, nil
}

func (s *Source) Path() string { return s.path }

// Size returns the size of the file on disk.
func (s *Source) Size() int64 { return s.size }

// Compressed reports whether the corpus is gzip-compressed.
func (s *Source) Compressed() bool { return s.gzipped }

func (s *Source) Close() error { return s.file.Close() }

// Partition splits the corpus for at most maxWorkers workers, bounded by cpus
// (runtime.NumCPU when cpus <= 0) and by the file size. A compressed corpus
// cannot be split and always yields one inline range.
func (s *Source) Partition(maxWorkers, cpus int) (Plan, error) {
	if s.size == 0 {
		return Plan{}, nil
	}
	if s.gzipped {
		return Plan{Ranges: []Range{{Worker: Inline(), Start: 0, End: s.size}}}, nil
	}
	n := WorkerCount(maxWorkers, cpus, s.size)
	return Split(s.file, s.size, n)
}

// Scan returns a Scanner over the lines of r. For a compressed corpus the
// range is ignored and the whole decompressed stream is scanned.
func (s *Source) Scan(r Range) (*Scanner, error) {
	if s.gzipped {
		zr, err := gzip.NewReader(io.NewSectionReader(s.file, 0, s.size))
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageConfig, "%s: %v", s.path, err)
		}
		return &Scanner{r: bufio.NewReaderSize(zr, readBufSize), closer: zr}, nil
	}
	if r.Start < 0 || r.End > s.size || r.Start > r.End {
		return nil, fmt.Errorf("range %s outside corpus of %d bytes", r, s.size)
	}
	section := io.NewSectionReader(s.file, r.Start, r.Len())
	return &Scanner{r: bufio.NewReaderSize(section, readBufSize)}, nil
}

// Scanner yields the corpus one line (segment) at a time, split on
// whitespace. Token strings are owned by the caller.
type Scanner struct {
	r      *bufio.Reader
	closer io.Closer
	tokens []string
	bytes  int64
	err    error
	done   bool
}

// Next advances to the next line. It returns false at the end of the range or
// on a read error, which Err then reports.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	line, err := s.r.ReadString('\n')
	s.bytes += int64(len(line))
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = fmt.Errorf("reading corpus: %w", err)
			return false
		}
		if line == "" {
			return false
		}
	}
	s.tokens = strings.Fields(line)
	return true
}

// Tokens returns the tokens of the current line.
func (s *Scanner) Tokens() []string { return s.tokens }

// BytesRead returns how many bytes of input have been consumed.
func (s *Scanner) BytesRead() int64 { return s.bytes }

func (s *Scanner) Err() error { return s.err }

func (s *Scanner) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
