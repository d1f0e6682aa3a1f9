package dotenv

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// quoteState tracks whether a logical line is still open at the end of a
// physical line.
type quoteState int

const (
	stateComplete quoteState = iota
	stateEscape
	stateStrongOpen
	stateStrongOpenEscape
	stateWeakOpen
	stateWeakOpenEscape
	stateComment
	stateWhitespace
)

// eval runs the state machine over chunk. When a comment starts, it stops
// and returns the byte index of the '#'.
func (s quoteState) eval(chunk string) (quoteState, int) {
	for i, c := range chunk {
		switch s {
		case stateComplete, stateWhitespace:
			switch {
			case c == '#' && s == stateWhitespace:
				return stateComment, i
			case c == '\\':
				s = stateEscape
			case c == '"':
				s = stateWeakOpen
			case c == '\'':
				s = stateStrongOpen
			case c != '\n' && c != '\r' && unicode.IsSpace(c):
				s = stateWhitespace
			default:
				s = stateComplete
			}
		case stateEscape:
			s = stateComplete
		case stateWeakOpen:
			switch c {
			case '\\':
				s = stateWeakOpenEscape
			case '"':
				s = stateComplete
			}
		case stateWeakOpenEscape:
			s = stateWeakOpen
		case stateStrongOpen:
			switch c {
			case '\\':
				s = stateStrongOpenEscape
			case '\'':
				s = stateComplete
			}
		case stateStrongOpenEscape:
			s = stateStrongOpen
		}
	}
	return s, len(chunk)
}

// LineReader splits an env stream into logical lines. A logical line spans
// several physical lines while a quote is open. Comments are cut off.
type LineReader struct {
	rd         *bufio.Reader
	bomChecked bool
	err        error

	physical int
	start    int
}

func NewLineReader(r io.Reader) *LineReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &LineReader{rd: br}
}

// LineNumber returns the 1-based physical line on which the last logical
// line returned by Next started.
func (r *LineReader) LineNumber() int {
	return r.start
}

func (r *LineReader) skipBOM() error {
	r.bomChecked = true
	head, err := r.rd.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		_, err = r.rd.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// Next returns the next logical line without its line terminator. It
// returns io.EOF once the stream is exhausted. A stream that ends inside a
// quote yields a *LineError holding the unterminated text.
func (r *LineReader) Next() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if !r.bomChecked {
		if err := r.skipBOM(); err != nil {
			r.err = err
			return "", err
		}
	}

	var buf strings.Builder
	state := stateComplete
	r.start = r.physical + 1
	for {
		chunk, err := r.rd.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			r.err = err
			return "", err
		}

		if chunk != "" {
			r.physical++
			offset := buf.Len()
			buf.WriteString(chunk)

			if state == stateComplete && offset == 0 &&
				strings.HasPrefix(strings.TrimLeftFunc(chunk, unicode.IsSpace), "#") {
				return "", nil
			}

			var at int
			state, at = state.eval(chunk)
			switch state {
			case stateComplete, stateWhitespace:
				return trimEOL(buf.String()), nil
			case stateComment:
				return buf.String()[:offset+at], nil
			}
		}

		if eof {
			r.err = io.EOF
			if buf.Len() == 0 {
				return "", io.EOF
			}
			text := buf.String()
			return "", &LineError{Line: text, Offset: len(text)}
		}
	}
}

// All yields logical lines until the stream is exhausted. Line errors are
// yielded and iteration stops after them only when they are terminal.
func (r *LineReader) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(line, err) || (err != nil && r.err != nil) {
				return
			}
		}
	}
}

func trimEOL(s string) string {
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
		s = strings.TrimSuffix(s, "\r")
	}
	return s
}
