package dotenv

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNoInput is returned by a Loader that has neither a path nor a reader.
	ErrNoInput = errors.New("no input provided")
	// ErrInvalidOp is returned by LoadAndModify with the EnvOnly sequence,
	// which has nothing to write.
	ErrInvalidOp = errors.New("modify is not permitted with the env-only sequence")
	// ErrNotFound is returned by Find when no file exists up to the root.
	ErrNotFound = errors.New("env file not found")
)

// LineError reports a logical line that could not be parsed. Offset is a
// byte index into Line. Num is the physical line the logical line started
// on, when known.
type LineError struct {
	Line   string
	Offset int
	Num    int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("error parsing line: %q, error at line index: %d", e.Line, e.Offset)
}

// FileError adds the path of the env file to a load error.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

type NotPresentError struct {
	Key string
}

func (e *NotPresentError) Error() string {
	return fmt.Sprintf("%s is not set", e.Key)
}

// IsNotFound reports whether err was caused by a missing env file.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrNotFound)
}

func withPath(path string, err error) error {
	if err == nil || path == "" {
		return err
	}
	return &FileError{Path: path, Err: err}
}
