package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrCorpusUnreadable = errors.New("corpus unreadable")
	ErrEmptyCorpus      = errors.New("corpus is empty")
	ErrVocabUnreadable  = errors.New("vocabulary unreadable")
	ErrMalformedVocab   = errors.New("malformed vocabulary")
	ErrShardMissing     = errors.New("vocabulary shard missing")
	ErrCorruptRunFile   = errors.New("corrupt run file")
	ErrRunFileMissing   = errors.New("run file missing")
	ErrRunLocked        = errors.New("output directory locked by another run")
)

// Pipeline stages reported by StageError.
const (
	StageConfig = "config"
	StageVocab  = "vocab"
	StageCount  = "count"
	StageMerge  = "merge"
	StageOutput = "output"
)

type StageError struct {
	Err     error
	Stage   string
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func New(sentinel error, stage string, message string) *StageError {
	return &StageError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage string, format string, args ...any) *StageError {
	return &StageError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// StageOf returns the stage recorded on the first StageError in err's chain,
// or "" when there is none.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// IsConfig reports whether err belongs to the eager configuration checks that
// run before any worker starts.
func IsConfig(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrCorpusUnreadable),
		errors.Is(err, ErrEmptyCorpus),
		errors.Is(err, ErrVocabUnreadable):
		return true
	default:
		return false
	}
}
