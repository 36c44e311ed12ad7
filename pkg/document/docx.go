package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// wordprocessingML element names, namespace-agnostic.
const (
	elemParagraph = "p"
	elemRun       = "r"
	elemText      = "t"
	elemTab       = "tab"
	elemBreak     = "br"
	elemCarriage  = "cr"
)

func extractDOCX(data []byte, maxText int64) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ParseError{Format: FormatDOCX, Err: err}
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", &ParseError{Format: FormatDOCX, Err: fmt.Errorf("missing %s", docxBodyPart)}
	}

	rc, err := body.Open()
	if err != nil {
		return "", &ParseError{Format: FormatDOCX, Err: err}
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(&boundedReader{r: rc, remaining: maxText})
	if err != nil {
		return "", &ParseError{Format: FormatDOCX, Err: err}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs walks the document body and collects the text of every
// w:p element in document order, including paragraphs nested in tables.
// Tabs and breaks count only inside runs; w:pPr carries tab stop definitions
// that share the w:tab name.
func readParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		runDepth   int
		inText     bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", docxBodyPart, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemParagraph:
				if depth == 0 {
					current.Reset()
					runDepth = 0
				}
				depth++
			case elemRun:
				if depth > 0 {
					runDepth++
				}
			case elemText:
				inText = depth > 0
			case elemTab:
				if runDepth > 0 {
					current.WriteByte('\t')
				}
			case elemBreak, elemCarriage:
				if runDepth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case elemParagraph:
				if depth > 0 {
					depth--
					if depth == 0 {
						paragraphs = append(paragraphs, current.String())
					}
				}
			case elemRun:
				if runDepth > 0 {
					runDepth--
				}
			case elemText:
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}

// boundedReader fails with ErrTextTooLarge once more than remaining bytes
// have been read. Compressed parts can expand far beyond the upload size.
type boundedReader struct {
	r         io.Reader
	remaining int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrTextTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrTextTooLarge
	}
	return n, err
}
