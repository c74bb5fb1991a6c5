// Package e2e provides end-to-end tests; this file builds minimal files for supported types.
package e2e

import (
	"archive/zip"
	"bytes"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of file extensions used in E2E
// file-based tests. Covers plain text (.txt, .md, .rst) and OOXML
// (.docx, .xlsx). The extractor also supports .pdf, which is not
// generated here: there is no minimal PDF with extractable text.
var SupportedFileExtensions = []string{
	".txt", ".md", ".rst",
	".docx", ".xlsx",
}

// MinimalFileBytes returns the bytes of a minimal file of the given
// extension whose extracted text contains the given text. For plain
// types the content is the raw text; for binary types it is the file
// bytes.
func MinimalFileBytes(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return minimalDocx(text), nil
	case ".xlsx":
		return minimalXlsx(text)
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
