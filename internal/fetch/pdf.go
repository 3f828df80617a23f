// -----------------------------------------------------------------------
// PDF Extractor - text extraction for application/pdf responses
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
)

// PDFExtractor turns PDF bytes into plain text so the extraction pipeline
// can treat PDF responses like any other page.
type PDFExtractor struct {
	logger  arbor.ILogger
	tempDir string
	seq     atomic.Int64
}

// NewPDFExtractor creates the extractor and its scratch directory
func NewPDFExtractor(logger arbor.ILogger) *PDFExtractor {
	tempDir := filepath.Join(os.TempDir(), "webpeel-pdf")
	os.MkdirAll(tempDir, 0755)
	return &PDFExtractor{logger: logger, tempDir: tempDir}
}

// ExtractText extracts the text of every page, joined with page markers.
// pdfcpu works on files, so the bytes round-trip through the scratch dir.
func (e *PDFExtractor) ExtractText(pdfBytes []byte) (string, error) {
	id := e.seq.Add(1)
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%d_%d.pdf", os.Getpid(), id))
	if err := os.WriteFile(tempFile, pdfBytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d_%d", os.Getpid(), id))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		e.logger.Warn().Err(err).Msg("PDF content extraction failed")
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, rerr := os.ReadFile(filepath.Join(outDir, file.Name()))
		if rerr != nil {
			continue
		}
		var pageNum int
		if _, serr := fmt.Sscanf(file.Name(), "page_%d", &pageNum); serr == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	pageNums := make([]int, 0, len(pageTexts))
	for n := range pageTexts {
		pageNums = append(pageNums, n)
	}
	sort.Ints(pageNums)

	var builder strings.Builder
	for i, n := range pageNums {
		if i > 0 {
			builder.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", n))
		}
		builder.WriteString(strings.TrimSpace(pageTexts[n]))
	}

	e.logger.Debug().Int("pages", pageCount).Msg("PDF text extracted")
	return builder.String(), nil
}
