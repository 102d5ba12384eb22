package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const pdfExt = ".pdf"

// Entry is a picker row.
type Entry struct {
	Name string
	Path string
	Size int64
}

// Selection is the file chosen for upload.
type Selection struct {
	Path      string
	Name      string
	MediaType string
	Size      int64
}

// ListPDFs returns the .pdf files directly inside dir, sorted by name.
func ListPDFs(dir string) ([]Entry, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), pdfExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: e.Name(), Path: filepath.Join(dir, e.Name()), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// StatPDF returns the picker row for a single file. Missing files,
// directories and non-.pdf names are errors.
func StatPDF(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(path), pdfExt) {
		return Entry{}, fmt.Errorf("%s is not a PDF file", path)
	}
	return Entry{Name: filepath.Base(path), Path: path, Size: info.Size()}, nil
}

// Select resolves path into a Selection. The media type is sniffed from the
// content; the PDF constraint itself lives in the picker filter.
func Select(path string) (Selection, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Selection{}, errors.New("empty path")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	info, err := os.Stat(path)
	if err != nil {
		return Selection{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Selection{}, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("detect media type: %w", err)
	}
	mediaType := mt.String()
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return Selection{Path: path, Name: filepath.Base(path), MediaType: mediaType, Size: info.Size()}, nil
}

// Open opens the selected file for reading.
func (s Selection) Open() (io.ReadCloser, error) {
	if s.Path == "" {
		return nil, errors.New("no file selected")
	}
	return os.Open(s.Path)
}

// IsPDF reports whether the sniffed media type is PDF.
func (s Selection) IsPDF() bool {
	return s.MediaType == "application/pdf"
}

// HumanSize renders a byte count for the status line.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
