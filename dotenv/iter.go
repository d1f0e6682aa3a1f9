package dotenv

import (
	"errors"
	"io"
	"iter"
)

// Iter parses an env stream one assignment at a time. A malformed line is
// reported as a *LineError and the next call moves on to the following
// line. I/O errors end the iteration.
type Iter struct {
	lines *LineReader
	table SubstitutionTable
	env   Lookuper
}

type IterOption func(*Iter)

// WithLookup sets where substitutions look first. The default is the
// process environment.
func WithLookup(l Lookuper) IterOption {
	return func(it *Iter) {
		it.env = l
	}
}

func NewIter(r io.Reader, opts ...IterOption) *Iter {
	it := &Iter{
		lines: NewLineReader(r),
		table: SubstitutionTable{},
		env:   OSEnvironment(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Next returns the next assignment, or io.EOF when the stream is done.
func (it *Iter) Next() (Pair, error) {
	for {
		line, err := it.lines.Next()
		if err != nil {
			return Pair{}, it.annotate(err)
		}
		pair, ok, err := ParseLine(line, it.table, it.env)
		if err != nil {
			return Pair{}, it.annotate(err)
		}
		if ok {
			return pair, nil
		}
	}
}

func (it *Iter) annotate(err error) error {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		lineErr.Num = it.lines.LineNumber()
	}
	return err
}

// LineNumber returns the physical line on which the last item started.
func (it *Iter) LineNumber() int {
	return it.lines.LineNumber()
}

// All yields every assignment and every line error in source order.
func (it *Iter) All() iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		for {
			pair, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(pair, err) {
				return
			}
			var lineErr *LineError
			if err != nil && !errors.As(err, &lineErr) {
				return
			}
		}
	}
}

// Load collects all assignments, stopping at the first error. Later
// assignments of a key replace earlier ones.
func (it *Iter) Load() (EnvMap, error) {
	return it.load(nil)
}

func (it *Iter) load(apply func(key, value string) error) (EnvMap, error) {
	m := EnvMap{}
	for {
		pair, err := it.Next()
		if errors.Is(err, io.EOF) {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		if apply != nil {
			if err := apply(pair.Key, pair.Value); err != nil {
				return nil, err
			}
		}
		m[pair.Key] = pair.Value
	}
}
