// Package export writes plain text documents as .docx files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/jwulff/livenotes/internal/apperr"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 13
	titleSize = 16
)

// Writer saves documents under a fixed directory.
type Writer struct {
	dir string
}

func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Export writes a document with the given title and body to dir/filename
// and returns the full path. Blank lines in text separate paragraphs.
func (w *Writer) Export(title, text, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", apperr.E(apperr.Export, "export.Export", fmt.Errorf("invalid filename %q", filename))
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", apperr.E(apperr.Export, "export.Export", fmt.Errorf("create dir: %w", err))
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return "", apperr.E(apperr.Export, "export.Export", err)
	}

	addRun(doc.AddParagraph(""), title, true, titleSize)
	for _, para := range Paragraphs(text) {
		addRun(doc.AddParagraph(""), para, false, fontSize)
	}

	path := filepath.Join(w.dir, filename)
	if err := doc.SaveTo(path); err != nil {
		return "", apperr.E(apperr.Export, "export.Export", fmt.Errorf("save %s: %w", path, err))
	}
	return path, nil
}

// Paragraphs splits text on blank lines. Lines within a paragraph are
// joined with a single space.
func Paragraphs(text string) []string {
	var out, cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
