// Package pdftext turns job posting PDFs into the text lines the field
// extractor scans. Text comes from ledongthuc/pdf, validation from pdfcpu.
package pdftext

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/unicode/norm"
)

func init() {
	// keep pdfcpu from creating a config dir under $HOME
	model.ConfigPath = "disable"
}

// Extractor reads PDF files into lines of text
type Extractor struct {
	// Validate runs pdfcpu validation before text extraction
	Validate bool
	conf     *model.Configuration
}

// NewExtractor creates a new Extractor instance
func NewExtractor(validate bool) *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{Validate: validate, conf: conf}
}

// Lines returns the non-blank, trimmed lines of every page in page order
func (e *Extractor) Lines(path string) ([]string, error) {
	if e.Validate {
		if err := api.ValidateFile(path, e.conf); err != nil {
			return nil, fmt.Errorf("invalid PDF file: %w", err)
		}
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		lines = append(lines, SplitLines(text)...)
	}

	return lines, nil
}

// IsPDF checks that a downloaded body is a readable PDF and not, for
// instance, an HTML error page
func (e *Extractor) IsPDF(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return fmt.Errorf("missing %%PDF header")
	}
	if err := api.Validate(bytes.NewReader(data), e.conf); err != nil {
		return fmt.Errorf("invalid PDF: %w", err)
	}
	return nil
}

// SplitLines normalizes text to NFKC, splits it on newlines, trims each
// line and drops the blank ones
func SplitLines(text string) []string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// JobIDFromPath returns the numeric job ID encoded in a file name like 4521987.pdf
func JobIDFromPath(path string) (int64, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("file name %q is not a job ID: %w", filepath.Base(path), err)
	}
	return id, nil
}

// ListPDFs returns the *.pdf files directly under dir, sorted by name
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// pageText rebuilds a page row by row, falling back to plain text when the
// row layout can't be read
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return p.GetPlainText(nil)
	}

	// PDF y grows upwards, so the top row has the largest y
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	var buf strings.Builder
	for _, row := range sorted {
		buf.WriteString(rowText(row.Content))
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func averageY(texts []pdf.Text) float64 {
	if len(texts) == 0 {
		return 0
	}
	var total float64
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowText joins the glyph runs of a row left to right, inserting a space
// wherever the horizontal gap is wider than a fifth of the font size
func rowText(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var buf strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			fontSize := prev.FontSize
			if fontSize <= 0 {
				fontSize = 12
			}
			if t.X-(prev.X+prev.W) > fontSize*0.2 {
				buf.WriteString(" ")
			}
		}
		buf.WriteString(t.S)
	}
	return buf.String()
}
