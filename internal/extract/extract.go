// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFile is returned for extensions outside Allowed.
var ErrUnsupportedFile = errors.New("unsupported file type")

const (
	noPDFText     = "[PDF content could not be extracted]"
	emptyDocument = "[Document appears to be empty]"
)

// Allowed lists the accepted upload extensions, without the dot.
var Allowed = []string{"txt", "md", "pdf", "docx"}

// Ext returns the lower-cased extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Check reports ErrUnsupportedFile for names whose extension is not allowed.
// It inspects the name only.
func Check(name string) error {
	ext := Ext(name)
	for _, a := range Allowed {
		if ext == a {
			return nil
		}
	}
	if ext == "" {
		return fmt.Errorf("%w: file has no extension", ErrUnsupportedFile)
	}
	return fmt.Errorf("%w: .%s", ErrUnsupportedFile, ext)
}

// Text extracts the document text according to the extension of name.
func Text(name string, data []byte) (string, error) {
	if err := Check(name); err != nil {
		return "", err
	}
	switch Ext(name) {
	case "pdf":
		return pdfText(data)
	case "docx":
		return docxText(data)
	default:
		return plainText(data), nil
	}
}

// plainText decodes UTF-8, falling back to Latin-1 byte for byte.
func plainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, text))
		}
	}
	if len(parts) == 0 {
		return noPDFText, nil
	}
	return strings.Join(parts, "\n\n"), nil
}
