package ingest

import (
	"bufio"
	"io"
)

const (
	initialBufSize = 64 * 1024
	maxLineSize    = 4 * 1024 * 1024
)

// lineReader yields non-blank JSONL lines. Lines longer than maxLen
// are dropped and counted rather than aborting the file.
type lineReader struct {
	r         *bufio.Reader
	maxLen    int
	buf       []byte
	lineNo    int
	oversized int
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, initialBufSize),
		maxLen: maxLen,
		buf:    make([]byte, 0, initialBufSize),
	}
}

// next returns the next non-blank line and its 1-based line
// number, or ok=false at EOF or on a read error. err reports the
// read error, if any.
func (lr *lineReader) next() (line string, n int, ok bool, err error) {
	for {
		line, err := lr.readLine()
		if err != nil {
			if err == io.EOF {
				return "", 0, false, nil
			}
			return "", 0, false, err
		}
		if line != "" {
			return line, lr.lineNo, true, nil
		}
	}
}

// readLine returns "" for blank or oversized lines and io.EOF
// once the input is exhausted.
func (lr *lineReader) readLine() (string, error) {
	lr.buf = lr.buf[:0]
	oversized := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if len(lr.buf) > 0 && err == io.EOF {
				break
			}
			return "", err
		}

		if oversized {
			if !isPrefix {
				lr.lineNo++
				return "", nil
			}
			continue
		}

		lr.buf = append(lr.buf, chunk...)
		if len(lr.buf) > lr.maxLen {
			oversized = true
			lr.oversized++
			lr.buf = lr.buf[:0]
			if !isPrefix {
				lr.lineNo++
				return "", nil
			}
			continue
		}
		if !isPrefix {
			break
		}
	}

	lr.lineNo++
	return string(lr.buf), nil
}
