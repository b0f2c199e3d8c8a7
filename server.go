package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

type entrySource interface {
	Entries(category xmlstore.Category) ([]xmlstore.Entry, error)
}

// NewPipelineServer exposes the aggregated documents to MCP clients: one tool
// to list a category's entries and one to fetch a single document's text.
func NewPipelineServer(src entrySource) *server.MCPServer {
	srv := server.NewMCPServer("Data-Pipeline", "0.0.1", server.WithToolCapabilities(false))

	list := mcp.NewTool("list_documents",
		mcp.WithDescription("Lists the documents aggregated for a category"),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("One of: external, internal, client"),
		))
	srv.AddTool(list, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, err := requestCategory(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entries, err := src.Entries(category)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, e := range entries {
			raw, err := json.Marshal(struct {
				Filename string `json:"filename"`
			}{
				Filename: e.Filename,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	get := mcp.NewTool("get_document",
		mcp.WithDescription("Returns the extracted text of one aggregated document"),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("One of: external, internal, client"),
		),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Document filename as reported by list_documents"),
		))
	srv.AddTool(get, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, err := requestCategory(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entries, err := src.Entries(category)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		for _, e := range entries {
			if e.Filename == filename {
				return mcp.NewToolResultText(e.Text), nil
			}
		}

		return mcp.NewToolResultError(fmt.Sprintf("no %s document named %s", category, filename)), nil
	})

	return srv
}

func requestCategory(request mcp.CallToolRequest) (xmlstore.Category, error) {
	raw, err := request.RequireString("category")
	if err != nil {
		return "", err
	}

	return xmlstore.ParseCategory(raw)
}
