// Package extract pulls plain text out of uploaded course files.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/pavelanni/academy/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether files with the given name can be extracted.
func Supported(filename string) bool {
	switch ext(filename) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// Text returns the text content of a file, chosen by its extension.
// Plain text that is not UTF-8 is decoded as Windows-1251.
func Text(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext(filename) {
	case ".txt", ".md":
		text, err = plainText(data)
	case ".pdf":
		text, err = pdfText(data)
	default:
		return "", model.Invalid("UnsupportedFileType",
			fmt.Sprintf("unsupported file type %q: use .txt, .md or .pdf", filepath.Ext(filename)),
			map[string]any{"Ext": filepath.Ext(filename)})
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.Invalid("FileHasNoText", "file contains no extractable text", nil)
	}
	return text, nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", model.Invalid("FileUnreadable", "file is not valid text", nil)
	}
	return string(decoded), nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", model.Invalid("FileUnreadable", "file is not a readable PDF", nil)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
