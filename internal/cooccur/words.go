package cooccur

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// writeWordLists writes the found target words in id order and the context
// band words in band order, one token per line.
func (c *Counter) writeWordLists(res *Result) error {
	targets := make([]string, 0, res.Found.GetCardinality())
	it := res.Found.Iterator()
	for it.HasNext() {
		id := int(it.Next())
		if id < c.vocab.TargetLimit {
			targets = append(targets, c.vocab.Token(id))
		}
	}
	band := c.vocab.ContextWords()

	res.TargetWordsFile = filepath.Join(c.opts.OutputDir, TargetWordsName)
	if err := writeLines(res.TargetWordsFile, targets); err != nil {
		return err
	}
	res.ContextWordsFile = filepath.Join(c.opts.OutputDir, ContextWordsName)
	if err := writeLines(res.ContextWordsFile, band); err != nil {
		return err
	}
	res.ContextWords = len(band)
	return nil
}

func writeLines(path string, lines []string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
