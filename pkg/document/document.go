// Package document turns uploaded PDF and Word files into plain text.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies a supported document container.
type Format string

const (
	// FormatPDF is a Portable Document Format file.
	FormatPDF Format = "pdf"
	// FormatDOCX is an Office Open XML word-processing document.
	FormatDOCX Format = "docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZIP  = "application/zip"
)

var (
	// ErrUnsupportedFormat indicates the upload is neither a PDF nor a Word document.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrFormatMismatch indicates the file content does not match its declared format.
	ErrFormatMismatch = errors.New("document content does not match declared format")
	// ErrTextTooLarge indicates the decompressed document body exceeded the extraction limit.
	ErrTextTooLarge = errors.New("document body exceeds extraction limit")
)

// DefaultMaxTextBytes bounds the decompressed body of a Word document.
const DefaultMaxTextBytes int64 = 64 << 20

type extractOptions struct {
	maxTextBytes int64
}

// Option tunes Extract.
type Option func(*extractOptions)

// WithMaxTextBytes bounds the decompressed document body. Values below one
// keep the default.
func WithMaxTextBytes(n int64) Option {
	return func(o *extractOptions) {
		if n > 0 {
			o.maxTextBytes = n
		}
	}
}

// ParseError is returned when a document cannot be read as its declared format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("parse document: %v", e.Err)
	}
	return fmt.Sprintf("parse %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatFor resolves the declared format of an upload from its MIME type,
// falling back to the file extension when the browser sent a generic type.
func FormatFor(contentType, filename string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case mimePDF:
		return FormatPDF, nil
	case mimeDOCX:
		return FormatDOCX, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	}

	return "", &ParseError{Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)}
}

// Detect sniffs the MIME type of the payload.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

// Extract returns the plain text of data interpreted as format.
// An empty string is a valid result; callers decide whether it is usable.
func Extract(data []byte, format Format, opts ...Option) (string, error) {
	options := extractOptions{maxTextBytes: DefaultMaxTextBytes}
	for _, opt := range opts {
		opt(&options)
	}

	if err := verifyFormat(data, format); err != nil {
		return "", err
	}

	switch format {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data, options.maxTextBytes)
	default:
		return "", &ParseError{Format: format, Err: ErrUnsupportedFormat}
	}
}

func verifyFormat(data []byte, format Format) error {
	detected := mimetype.Detect(data)

	var ok bool
	switch format {
	case FormatPDF:
		ok = detected.Is(mimePDF)
	case FormatDOCX:
		// Word files written by some tools carry no [Content_Types] hint early
		// enough for sniffing and are reported as plain zip archives.
		ok = detected.Is(mimeDOCX) || detected.Is(mimeZIP)
	default:
		return &ParseError{Format: format, Err: ErrUnsupportedFormat}
	}

	if !ok {
		return &ParseError{Format: format, Err: fmt.Errorf("%w: detected %s", ErrFormatMismatch, detected.String())}
	}
	return nil
}
