package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxTextRun matches <w:t> elements, whose content is character data only.
var docxTextRun = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX pulls the text runs out of the main document part of a
// Word document, which is a zip archive of XML parts.
func extractDOCX(content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var document []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document part: %w", err)
		}
		document, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document part: %w", err)
		}
		break
	}
	if document == nil {
		return "", fmt.Errorf("docx has no word/document.xml part")
	}

	matches := docxTextRun.FindAllSubmatch(document, -1)
	parts := make([]string, 0, len(matches))
	for _, match := range matches {
		text := string(match[1])
		if text != "" {
			parts = append(parts, decodeXMLEntities(text))
		}
	}
	return strings.Join(parts, " "), nil
}

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func decodeXMLEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return xmlEntities.Replace(s)
}
