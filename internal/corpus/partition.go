package corpus

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strconv"
)

// Worker identifies who processes a range: the calling goroutine when the
// corpus is not partitioned, or a numbered worker otherwise.
type Worker struct {
	index  int
	inline bool
}

// Inline is the worker of an unpartitioned corpus.
func Inline() Worker { return Worker{inline: true} }

// Numbered is the i-th worker of a partitioned corpus.
func Numbered(i int) Worker { return Worker{index: i} }

func (w Worker) IsInline() bool { return w.inline }

// Index returns the worker number; ok is false for the inline worker.
func (w Worker) Index() (index int, ok bool) {
	if w.inline {
		return 0, false
	}
	return w.index, true
}

func (w Worker) String() string {
	if w.inline {
		return "inline"
	}
	return strconv.Itoa(w.index)
}

// Range is the half-open byte interval [Start, End) assigned to one worker.
// Both ends sit on line starts (or the ends of the file).
type Range struct {
	Worker Worker
	Start  int64
	End    int64
}

func (r Range) Len() int64 { return r.End - r.Start }

func (r Range) String() string {
	return fmt.Sprintf("%s[%d,%d)", r.Worker, r.Start, r.End)
}

// Plan is the set of ranges covering a corpus, one per worker.
type Plan struct {
	Ranges []Range
}

// Inline reports whether the plan is the single-worker, unpartitioned case.
func (p Plan) Inline() bool {
	return len(p.Ranges) == 1 && p.Ranges[0].Worker.IsInline()
}

// Workers returns the number of workers in the plan.
func (p Plan) Workers() int { return len(p.Ranges) }

// WorkerCount picks the number of workers: at most maxWorkers, at most cpus
// (runtime.NumCPU when cpus <= 0), at most units, and never less than one.
func WorkerCount(maxWorkers, cpus int, units int64) int {
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	n := maxWorkers
	if n > cpus {
		n = cpus
	}
	if int64(n) > units {
		n = int(units)
	}
	if n < 1 {
		n = 1
	}
	return n
}

const alignBufSize = 64 << 10

// Split divides [0, size) into n near-equal ranges. Every interior boundary
// i*size/n is moved forward to the byte after the next '\n' at or after
// boundary-1, so no range starts or ends inside a line. A newline byte never
// occurs inside a multi-byte UTF-8 sequence, which makes this the
// resynchronisation rule for any encoding. Ranges left empty by snapping are
// dropped and the survivors renumbered; a single survivor becomes inline.
func Split(r io.ReaderAt, size int64, n int) (Plan, error) {
	if size <= 0 {
		return Plan{}, nil
	}
	if n <= 1 {
		return Plan{Ranges: []Range{{Worker: Inline(), Start: 0, End: size}}}, nil
	}
	bounds := make([]int64, 0, n+1)
	bounds = append(bounds, 0)
	buf := make([]byte, alignBufSize)
	for i := 1; i < n; i++ {
		b := int64(i) * size / int64(n)
		if prev := bounds[len(bounds)-1]; b < prev {
			b = prev
		}
		aligned, err := alignForward(r, buf, size, b)
		if err != nil {
			return Plan{}, err
		}
		bounds = append(bounds, aligned)
	}
	bounds = append(bounds, size)

	var ranges []Range
	for i := 1; i < len(bounds); i++ {
		if bounds[i] > bounds[i-1] {
			ranges = append(ranges, Range{
				Worker: Numbered(len(ranges)),
				Start:  bounds[i-1],
				End:    bounds[i],
			})
		}
	}
	if len(ranges) == 1 {
		ranges[0].Worker = Inline()
	}
	return Plan{Ranges: ranges}, nil
}

// alignForward returns the offset just past the first '\n' found at or after
// pos-1, or size when there is none.
func alignForward(r io.ReaderAt, buf []byte, size, pos int64) (int64, error) {
	if pos <= 0 {
		return 0, nil
	}
	at := pos - 1
	for at < size {
		n, err := r.ReadAt(buf, at)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return at + int64(i) + 1, nil
		}
		at += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("aligning partition boundary at %d: %w", pos, err)
		}
	}
	return size, nil
}
