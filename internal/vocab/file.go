package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/hashtable"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

const ioBufSize = 1 << 20

// WriteFile atomically writes entries as "token count" lines, in the order
// given. The file appears under path only once it is complete.
func WriteFile(path string, entries []hashtable.Entry) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating vocabulary file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, ioBufSize)
	for _, e := range entries {
		w.WriteString(e.Token)
		w.WriteByte(' ')
		w.WriteString(strconv.FormatUint(e.Count, 10))
		if err := w.WriteByte('\n'); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing vocabulary file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("flushing vocabulary file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing vocabulary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming vocabulary file: %w", err)
	}
	return nil
}

// ReadFile reads a vocabulary file in file order. Lines must be
// "token count"; anything else is ErrMalformedVocab.
func ReadFile(path string) ([]hashtable.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrVocabUnreadable, apperrors.StageVocab, "%s: %v", path, err)
	}
	defer f.Close()

	var entries []hashtable.Entry
	err = readEntries(f, func(e hashtable.Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// readEntries streams "token count" lines from r into fn.
func readEntries(r io.Reader, fn func(hashtable.Entry) error) error {
	br := bufio.NewReaderSize(r, ioBufSize)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if line != "" {
			e, perr := parseLine(strings.TrimRight(line, "\r\n"))
			if perr != nil {
				return apperrors.Newf(apperrors.ErrMalformedVocab, apperrors.StageVocab, "line %d: %v", lineNo, perr)
			}
			if ferr := fn(e); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperrors.Newf(apperrors.ErrVocabUnreadable, apperrors.StageVocab, "line %d: %v", lineNo, err)
		}
	}
}

func parseLine(line string) (hashtable.Entry, error) {
	sep := strings.LastIndexByte(line, ' ')
	if sep <= 0 {
		return hashtable.Entry{}, fmt.Errorf("expected \"token count\", got %q", line)
	}
	token := line[:sep]
	if strings.ContainsAny(token, " \t") {
		return hashtable.Entry{}, fmt.Errorf("token %q contains whitespace", token)
	}
	count, err := strconv.ParseUint(line[sep+1:], 10, 64)
	if err != nil {
		return hashtable.Entry{}, fmt.Errorf("bad count in %q: %v", line, err)
	}
	return hashtable.Entry{Token: token, Count: count}, nil
}
