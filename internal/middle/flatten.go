package middle

import (
	"strings"

	"github.com/akolanti/irbench/internal/domain/middleModel"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// Paragraph is one non-empty paragraph of a page, in reading order.
type Paragraph struct {
	PageIdx   int
	PageSize  []float64
	BBox      []float64
	BBoxIndex int
	Lines     []string
}

// Text joins the paragraph lines with no separator.
func (p Paragraph) Text() string {
	return strings.Join(p.Lines, "")
}

// PageText is the merged content of one page.
type PageText struct {
	PageIdx  int
	PageSize []float64
	Text     string
	// Paragraphs holds the per-paragraph texts that made up the page.
	Paragraphs []Paragraph
}

// Walker flattens middle documents while collecting observed types.
type Walker struct {
	SpanTypes TypeSet
	ParaTypes TypeSet
	logger    *logger_i.Logger
}

func NewWalker() *Walker {
	return &Walker{
		SpanTypes: TypeSet{},
		ParaTypes: TypeSet{},
		logger:    logger_i.NewLogger("middle"),
	}
}

// Paragraphs emits one Paragraph per paragraph block with at least one
// content line. BBoxIndex is the block's position within its page, so
// dropped paragraphs leave gaps.
func (w *Walker) Paragraphs(doc middleModel.Document) []Paragraph {
	var out []Paragraph
	for _, page := range doc.PdfInfo {
		for idx, para := range page.ParaBlocks {
			w.ParaTypes.add(string(para.Type))
			lines := ExtractParagraph(para, w.SpanTypes)
			if len(lines) == 0 {
				continue
			}
			out = append(out, Paragraph{
				PageIdx:   page.PageIdx,
				PageSize:  page.PageSize,
				BBox:      para.BBox,
				BBoxIndex: idx,
				Lines:     lines,
			})
		}
	}
	return out
}

// Pages merges a document into at most one PageText per page_idx, in first
// seen order. Every line of every paragraph becomes one line of the page
// text. A page_idx seen twice is appended to the first record.
func (w *Walker) Pages(doc middleModel.Document) []PageText {
	var out []PageText
	position := map[int]int{}

	for _, page := range doc.PdfInfo {
		var lines []string
		var paras []Paragraph
		for idx, para := range page.ParaBlocks {
			w.ParaTypes.add(string(para.Type))
			content := ExtractParagraph(para, w.SpanTypes)
			if len(content) == 0 {
				continue
			}
			lines = append(lines, content...)
			paras = append(paras, Paragraph{
				PageIdx:   page.PageIdx,
				PageSize:  page.PageSize,
				BBox:      para.BBox,
				BBoxIndex: idx,
				Lines:     content,
			})
		}
		if len(lines) == 0 {
			continue
		}
		text := strings.Join(lines, "\n")

		if i, seen := position[page.PageIdx]; seen {
			w.logger.Warn("page index repeated in document, merging", "page_idx", page.PageIdx)
			out[i].Text = out[i].Text + "\n" + text
			out[i].Paragraphs = append(out[i].Paragraphs, paras...)
			continue
		}
		position[page.PageIdx] = len(out)
		out = append(out, PageText{
			PageIdx:    page.PageIdx,
			PageSize:   page.PageSize,
			Text:       text,
			Paragraphs: paras,
		})
	}
	return out
}
