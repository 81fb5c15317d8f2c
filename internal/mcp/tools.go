package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the indexed documents. Returns the most relevant passages, best first."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of passages to return (default from configuration)"),
	),
)

// askDocumentsTool defines the ask_documents MCP tool.
var askDocumentsTool = mcp.NewTool("ask_documents",
	mcp.WithDescription("Answer a question using passages retrieved from the indexed documents."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of passages to ground the answer on"),
	),
)

// syncDocumentsTool defines the sync_documents MCP tool.
var syncDocumentsTool = mcp.NewTool("sync_documents",
	mcp.WithDescription("Bring the index up to date with the documents directory and report what changed."),
)
