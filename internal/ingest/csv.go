package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"etlinspector/internal/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in order; ties go to the earlier one.
var candidateDelimiters = []rune{',', ';', '\t'}

// ReadCSV reads delimited text. A leading UTF-8 BOM is dropped and, unless
// opts.Delimiter is set, the separator is guessed from the first line.
func ReadCSV(ctx context.Context, r io.Reader, name string, opts Options) (*dataset.Dataset, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	delim := opts.Delimiter
	if delim == 0 {
		line, err := peekLine(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		delim = DetectDelimiter(line)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	c := newCollector(opts)
	for {
		if c.seen%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if c.add(record) {
			break
		}
	}

	return c.build(name, opts)
}

// DetectDelimiter picks the candidate separator that occurs most often
// outside quotes in line. Comma wins when none occurs.
func DetectDelimiter(line string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	quoted := false
	for _, r := range line {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}

	best, bestN := candidateDelimiters[0], 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

// peekLine returns the first line without consuming it. Lines longer than
// the reader's buffer are cut at the buffer size.
func peekLine(br *bufio.Reader) (string, error) {
	for n := 64; ; n *= 2 {
		buf, err := br.Peek(n)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return string(buf[:i]), nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull) {
				return string(buf), nil
			}
			return "", err
		}
	}
}
