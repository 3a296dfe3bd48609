package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat signals a MIME type the ingestor cannot read.
	// The accompanying text is always empty.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed matches every ExtractionError.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// ExtractionError wraps a parser failure for a supported format.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }
