package ocr

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// minEmbeddedChars is the cutoff between the embedded-text path and the
// scanned-document path: anything shorter is assumed to be a scan.
const minEmbeddedChars = 200

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		pages = e.cfg.MaxPages
	}

	// 1) embedded text
	var parts []string
	for i := 0; i < pages; i++ {
		t, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("pdf text page failed", "path", path, "page", i+1, "error", err)
			continue
		}
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	embedded := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if len(embedded) >= minEmbeddedChars {
		e.logger.Debug("pdf embedded text used", "path", path, "pages", pages, "chars", len(embedded))
		return embedded, nil
	}

	// 2) scanned: rasterize each page and OCR it
	tmpDir, err := os.MkdirTemp("", "dc-pages-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove page temp dir", "dir", tmpDir, "error", err)
		}
	}()

	var chunks []string
	for i := 0; i < pages; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		txt, err := e.ocrPage(ctx, doc, i, tmpDir)
		if err != nil {
			e.logger.Warn("pdf page ocr failed", "path", path, "page", i+1, "error", err)
			continue
		}
		if txt != "" {
			chunks = append(chunks, txt)
		}
	}
	e.logger.Debug("pdf ocr fallback used", "path", path, "pages", pages)
	return strings.TrimSpace(strings.Join(chunks, "\n\n")), nil
}

// ocrPage renders one page at the configured DPI, OCRs it, and removes the
// rendered image before returning, whatever the OCR outcome.
func (e *Extractor) ocrPage(ctx context.Context, doc *fitz.Document, page int, tmpDir string) (string, error) {
	img, err := doc.ImageDPI(page, float64(e.cfg.DPI))
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page+1, err)
	}

	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", page+1))
	fh, err := os.Create(imgPath)
	if err != nil {
		return "", err
	}
	if err := png.Encode(fh, img); err != nil {
		fh.Close()
		_ = os.Remove(imgPath)
		return "", fmt.Errorf("encode page %d: %w", page+1, err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(imgPath)
		return "", err
	}
	defer func() {
		if err := os.Remove(imgPath); err != nil {
			e.logger.Warn("failed to remove rendered page", "path", imgPath, "error", err)
		}
	}()

	txt, err := e.tesseract(ctx, imgPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}
