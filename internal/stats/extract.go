package stats

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

const pageExtractTimeout = 10 * time.Second

// readText reads a .md, .docx, .odt, .rtf or plaintext file.
func readText(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return text, nil
}

type pdfText struct {
	Pages      int
	Characters int
}

// extractPDF counts pages and extracted characters. Pages whose text cannot
// be read in time are counted but contribute no characters.
func extractPDF(path string) (out pdfText, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf %s: %v", path, r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return out, err
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return out, fmt.Errorf("failed to open pdf: %w", err)
	}

	out.Pages = r.NumPage()
	for i := 1; i <= out.Pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(page)
		if err != nil {
			continue
		}
		out.Characters += len([]rune(content))
	}
	return out, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page extract panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("timeout")
	}
}
