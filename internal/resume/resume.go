// Package resume extracts plain text from a resume or skills file so it can
// be used as the skills field of a profile.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MaxFileSize bounds the size of a skills file.
const MaxFileSize = 5 << 20

// ErrUnsupported is returned for file types other than .pdf, .txt and .md.
var ErrUnsupported = errors.New("unsupported file type")

var spaceRun = regexp.MustCompile(`[ \t]+`)

// ExtractText reads path and returns its text content with whitespace
// collapsed.
func ExtractText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading skills file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("skills file %s is larger than %d bytes", path, MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading skills file: %w", err)
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("skills file %s is not valid UTF-8", path)
		}
		text = string(data)
	case ".pdf":
		text, err = pdfText(data)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	text = clean(text)
	if text == "" {
		return "", fmt.Errorf("skills file %s contains no text", path)
	}
	return text, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func clean(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
