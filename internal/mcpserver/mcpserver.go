// Package mcpserver exposes a dataset's documents to MCP clients as a search
// tool.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/rag/lexical"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultTopK = 10
	maxTopK     = 100
)

type SearchArgs struct {
	Query string `json:"query" jsonschema:"free-text query, Chinese or English"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of hits to return, default 10"`
}

type SearchHit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type SearchResult struct {
	Dataset string      `json:"dataset"`
	Hits    []SearchHit `json:"hits"`
}

type InfoArgs struct{}

type InfoResult struct {
	Dataset   string         `json:"dataset"`
	Documents int            `json:"documents"`
	Queries   int            `json:"queries"`
	Qrels     eval.QrelStats `json:"qrels"`
}

type Server struct {
	ds     *eval.Dataset
	index  *lexical.Index
	mcp    *mcp.Server
	logger *logger_i.Logger
}

// New indexes ds in memory and registers the search_corpus and
// dataset_info tools.
func New(ctx context.Context, ds *eval.Dataset, version string) (*Server, error) {
	idx, err := lexical.New("")
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, ds.Docs); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index %s: %w", ds.Name, err)
	}

	s := &Server{
		ds:     ds,
		index:  idx,
		mcp:    mcp.NewServer(&mcp.Implementation{Name: "irbench", Version: version}, nil),
		logger: logger_i.NewLogger("mcp").With("dataset", ds.Name),
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Lexical search over the documents of " + ds.Name + ". Returns ranked doc ids with their text.",
	}, s.search)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "dataset_info",
		Description: "Document, query and relevance-judgement counts of the loaded dataset.",
	}, s.info)
	return s, nil
}

func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio", "documents", len(s.ds.Docs))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) Close() error {
	return s.index.Close()
}

func (s *Server) search(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, SearchResult, error) {
	if lexical.Sanitize(args.Query) == "" {
		return nil, SearchResult{}, errors.New("query is empty")
	}
	k := args.TopK
	if k <= 0 {
		k = defaultTopK
	}
	k = min(k, maxTopK)

	hits, err := s.index.Search(ctx, args.Query, k)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		return nil, SearchResult{}, err
	}
	out := SearchResult{Dataset: s.ds.Name, Hits: make([]SearchHit, 0, len(hits))}
	for _, h := range hits {
		out.Hits = append(out.Hits, SearchHit{DocID: h.DocID, Score: h.Score, Text: h.Text})
	}
	s.logger.Debug("search", "query", args.Query, "hits", len(out.Hits))
	return nil, out, nil
}

func (s *Server) info(_ context.Context, _ *mcp.CallToolRequest, _ InfoArgs) (*mcp.CallToolResult, InfoResult, error) {
	return nil, InfoResult{
		Dataset:   s.ds.Name,
		Documents: len(s.ds.Docs),
		Queries:   len(s.ds.Queries),
		Qrels:     eval.ComputeQrelStats(s.ds.Relevant),
	}, nil
}
