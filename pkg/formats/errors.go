package formats

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Text format errors shared by the OBJ and MTL parsers.
var (
	ErrFileNotFound          = errors.New("file not found")
	ErrUnsupportedTopology   = errors.New("unsupported face topology: only triangles are supported")
	ErrUnsupportedFaceFormat = errors.New("unsupported face format: corners need a normal index")
	ErrMalformedLine         = errors.New("malformed line")
)

// ParseError reports the 1-based line a text parser stopped at.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// openText opens a text asset, mapping a missing file to ErrFileNotFound.
func openText(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	return f, nil
}
