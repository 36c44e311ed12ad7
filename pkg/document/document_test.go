package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evaluator/pkg/document/documenttest"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        Format
		wantErr     bool
	}{
		{name: "pdf mime", contentType: "application/pdf", filename: "rubric", want: FormatPDF},
		{name: "docx mime", contentType: mimeDOCX, filename: "essay", want: FormatDOCX},
		{name: "mime with params", contentType: "application/pdf; charset=binary", want: FormatPDF},
		{name: "generic mime pdf extension", contentType: "application/octet-stream", filename: "Rubric.PDF", want: FormatPDF},
		{name: "generic mime docx extension", contentType: "", filename: "essay.docx", want: FormatDOCX},
		{name: "legacy doc rejected", contentType: "application/msword", filename: "essay.doc", wantErr: true},
		{name: "plain text rejected", contentType: "text/plain", filename: "notes.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFor(tt.contentType, tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPDFZeroPages(t *testing.T) {
	text, err := Extract(documenttest.PDF(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtractPDFPagesInOrder(t *testing.T) {
	text, err := Extract(documenttest.PDF("Grammar twenty points", "Content eighty points"), FormatPDF)
	require.NoError(t, err)

	first := strings.Index(text, "Grammar twenty points")
	second := strings.Index(text, "Content eighty points")
	require.GreaterOrEqual(t, first, 0, "first page text missing from %q", text)
	require.Greater(t, second, first, "pages out of order in %q", text)
	assert.Contains(t, text[first:second], "\n")
}

func TestExtractPDFCorrupt(t *testing.T) {
	data := []byte("%PDF-1.4\nthis is not really a pdf\n%%EOF\n")

	_, err := Extract(data, FormatPDF)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, FormatPDF, parseErr.Format)
}

func TestExtractDOCXParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>Grammar (20 pts)</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Content </w:t></w:r><w:r><w:t>(80 pts)</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell</w:t><w:tab/><w:t>value</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9360"/></w:tabs></w:pPr>` +
		`<w:r><w:t>Grammar</w:t></w:r><w:r><w:tab/><w:t>20 pts</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>`

	text, err := Extract(documenttest.DOCXFromXML(body), FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Grammar (20 pts)\nContent (80 pts)\n\nCell\tvalue\nGrammar\t20 pts\nLine one\nLine two", text)
}

func TestExtractDOCXBodyLimit(t *testing.T) {
	data := documenttest.DOCX(strings.Repeat("rubric ", 2000))

	_, err := Extract(data, FormatDOCX, WithMaxTextBytes(1024))
	require.ErrorIs(t, err, ErrTextTooLarge)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, FormatDOCX, parseErr.Format)

	text, err := Extract(data, FormatDOCX, WithMaxTextBytes(1<<20))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(strings.Repeat("rubric ", 2000)), strings.TrimSpace(text))
}

func TestExtractDOCXEmptyBody(t *testing.T) {
	text, err := Extract(documenttest.DOCXFromXML(""), FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtractDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(buf.Bytes(), FormatDOCX)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, FormatDOCX, parseErr.Format)
}

func TestExtractFormatMismatch(t *testing.T) {
	_, err := Extract(documenttest.PDF("hello"), FormatDOCX)
	require.ErrorIs(t, err, ErrFormatMismatch)

	_, err = Extract(documenttest.DOCXFromXML(`<w:p><w:r><w:t>hi</w:t></w:r></w:p>`), FormatPDF)
	require.ErrorIs(t, err, ErrFormatMismatch)

	_, err = Extract([]byte("just some text"), FormatPDF)
	require.ErrorIs(t, err, ErrFormatMismatch)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, mimePDF, Detect(documenttest.PDF()))
}
