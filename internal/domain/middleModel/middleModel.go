// Package middleModel holds the page layout produced by the external PDF
// parser (MinerU "middle" JSON). It is read-only input for the pipeline.
package middleModel

type SpanType string
type ParaType string

const (
	SpanText              SpanType = "text"
	SpanInlineEquation    SpanType = "inline_equation"
	SpanInterlineEquation SpanType = "interline_equation"
	SpanImage             SpanType = "image"
	SpanTable             SpanType = "table"

	ParaTable ParaType = "table"
)

type Document struct {
	PdfInfo []Page `json:"pdf_info"`
}

type Page struct {
	PageIdx    int         `json:"page_idx"`
	PageSize   []float64   `json:"page_size"`
	ParaBlocks []ParaBlock `json:"para_blocks"`
}

// ParaBlock carries Lines for ordinary paragraphs and Blocks for tables.
type ParaBlock struct {
	Type   ParaType    `json:"type"`
	BBox   []float64   `json:"bbox"`
	Lines  []Line      `json:"lines,omitempty"`
	Blocks []ParaBlock `json:"blocks,omitempty"`
}

type Line struct {
	BBox  []float64 `json:"bbox,omitempty"`
	Spans []Span    `json:"spans"`
}

type Span struct {
	Type      SpanType  `json:"type"`
	BBox      []float64 `json:"bbox,omitempty"`
	Content   string    `json:"content,omitempty"`
	ImagePath string    `json:"image_path,omitempty"`
	HTML      string    `json:"html,omitempty"`
}
