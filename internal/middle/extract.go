package middle

import (
	"sort"
	"strings"

	"github.com/akolanti/irbench/internal/domain/middleModel"
)

// TypeSet collects the span and paragraph types observed while walking a
// document. It is diagnostic only.
type TypeSet map[string]struct{}

func (s TypeSet) add(t string) {
	if s != nil && t != "" {
		s[t] = struct{}{}
	}
}

// Sorted returns the observed types in lexical order.
func (s TypeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ExtractParagraph renders one paragraph into content strings, one per
// non-empty line (or per table block for table paragraphs).
func ExtractParagraph(para middleModel.ParaBlock, spanTypes TypeSet) []string {
	if para.Type == middleModel.ParaTable {
		return extractTable(para, spanTypes)
	}

	var contents []string
	for _, line := range para.Lines {
		var b strings.Builder
		for _, span := range line.Spans {
			spanTypes.add(string(span.Type))
			renderSpan(&b, span)
		}
		if b.Len() > 0 {
			contents = append(contents, b.String())
		}
	}
	return contents
}

// extractTable keeps only the html of table spans; text inside a table block
// is dropped.
func extractTable(para middleModel.ParaBlock, spanTypes TypeSet) []string {
	var contents []string
	for _, block := range para.Blocks {
		var b strings.Builder
		for _, line := range block.Lines {
			for _, span := range line.Spans {
				spanTypes.add(string(span.Type))
				if span.Type == middleModel.SpanTable {
					b.WriteString(span.HTML)
				}
			}
		}
		if b.Len() > 0 {
			contents = append(contents, b.String())
		}
	}
	return contents
}

func renderSpan(b *strings.Builder, span middleModel.Span) {
	switch span.Type {
	case middleModel.SpanText:
		b.WriteString(span.Content)
	case middleModel.SpanInlineEquation:
		b.WriteString("$" + span.Content + "$")
	case middleModel.SpanInterlineEquation:
		b.WriteString("$$\n" + span.Content + "\n$$")
	case middleModel.SpanImage:
		if span.ImagePath != "" {
			b.WriteString("[image](" + span.ImagePath + ")")
		}
	}
}
