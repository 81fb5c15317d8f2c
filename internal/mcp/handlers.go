package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/devflow/internal/assistant"
	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/retriever"
)

// handleSearchDocuments returns reranked passages for the query.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.svc.Search(ctx, query, request.GetInt("top_k", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The documents may not be indexed yet. Run `devflow sync` to index them."), nil
	}

	return mcp.NewToolResultText(formatResults(results)), nil
}

// handleAskDocuments answers the question from retrieved passages.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	ans, err := s.svc.Ask(ctx, assistant.AskRequest{Query: query, TopK: request.GetInt("top_k", 0)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(ans.Answer)
	if len(ans.Sources) > 0 {
		fmt.Fprintf(&b, "\n\nSources: %s", strings.Join(ans.Sources, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleSyncDocuments runs one synchronization pass.
func (s *Server) handleSyncDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.svc.Sync(ctx)
	if errors.Is(err, indexer.ErrSyncInProgress) {
		return mcp.NewToolResultError("a sync is already running; try again when it finishes"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSyncResult(result)), nil
}

func formatResults(results []retriever.Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (chunk %d, score %.3f)\n%s", i+1, filepath.Base(r.Source), r.Ordinal, r.Score, r.Text)
	}
	return b.String()
}

func formatSyncResult(r *indexer.SyncResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added %d, modified %d, resumed %d, removed %d, unchanged %d document(s).\n",
		r.Added, r.Modified, r.Resumed, r.Removed, r.Unchanged)
	fmt.Fprintf(&b, "Chunks written %d, skipped %d, deleted %d.", r.ChunksWritten, r.ChunksSkipped, r.ChunksDeleted)
	if r.Empty > 0 {
		fmt.Fprintf(&b, "\n%d document(s) had no text.", r.Empty)
	}
	for _, e := range r.ErrorStrings() {
		fmt.Fprintf(&b, "\nerror: %s", e)
	}
	return b.String()
}
