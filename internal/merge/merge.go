// Package merge combines sorted, duplicate-free record files into one sorted,
// duplicate-free file, holding at most one unread record per input in memory.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
)

const cancelCheckEvery = 1 << 20

// Options tunes a single Merge call.
type Options struct {
	// OnRecord is called for every record read from an input, before it is
	// coalesced.
	OnRecord func(record.Record)
	// KeepInputs leaves the input files in place after a successful merge.
	KeepInputs bool
}

// Stats reports how much a merge read and wrote.
type Stats struct {
	Inputs     int
	RecordsIn  int64
	RecordsOut int64
}

// TempPath is where Merge writes output before renaming it into place. The
// name keeps the output's extension so compression is preserved.
func TempPath(output string) string {
	return filepath.Join(filepath.Dir(output), "tmp-"+filepath.Base(output))
}

// Merge k-way merges inputs into output. Records with equal (Idx1, Idx2) are
// summed into one. The output only appears under its final name once it is
// complete; on any failure the partial file is removed. Inputs are deleted
// after a successful merge unless opts.KeepInputs is set. Zero inputs yield
// an empty output file.
func Merge(ctx context.Context, inputs []string, output string, opts Options) (Stats, error) {
	log := logger.FromContext(ctx).With("component", "merge", "output", output)
	stats := Stats{Inputs: len(inputs)}

	readers := make([]*record.Reader, 0, len(inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, path := range inputs {
		r, err := record.Open(path)
		if err != nil {
			return stats, err
		}
		readers = append(readers, r)
	}

	tmp := TempPath(output)
	w, err := record.Create(tmp)
	if err != nil {
		return stats, fmt.Errorf("merging into %s: %w", output, err)
	}
	if err := run(ctx, readers, w, opts, &stats); err != nil {
		w.Close()
		os.Remove(tmp)
		return stats, err
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return stats, err
	}
	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return stats, fmt.Errorf("renaming merge output: %w", err)
	}

	if !opts.KeepInputs {
		for _, path := range inputs {
			if err := os.Remove(path); err != nil {
				return stats, fmt.Errorf("removing merged input %s: %w", path, err)
			}
		}
	}
	log.Info("merge complete", "inputs", stats.Inputs, "records_in", stats.RecordsIn, "records_out", stats.RecordsOut)
	return stats, nil
}

func run(ctx context.Context, readers []*record.Reader, w *record.Writer, opts Options, stats *Stats) error {
	h := NewHeap(len(readers))
	advance := func(src int) error {
		rec, err := readers[src].Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.RecordsIn++
		h.Push(Item{Rec: rec, Source: src})
		return nil
	}
	for i := range readers {
		if err := advance(i); err != nil {
			return err
		}
	}

	var acc record.Accumulator
	for n := 0; h.Len() > 0; n++ {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return apperrors.Newf(err, apperrors.StageMerge, "merge interrupted")
			}
		}
		it := h.Pop()
		if opts.OnRecord != nil {
			opts.OnRecord(it.Rec)
		}
		if done, ok := acc.Add(it.Rec); ok {
			if err := w.Write(done); err != nil {
				return err
			}
			stats.RecordsOut++
		}
		if err := advance(it.Source); err != nil {
			return err
		}
	}
	if done, ok := acc.Flush(); ok {
		if err := w.Write(done); err != nil {
			return err
		}
		stats.RecordsOut++
	}
	return nil
}
