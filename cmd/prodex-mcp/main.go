package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/prodex/models"
)

func main() {
	apiURL := strings.TrimRight(os.Getenv("PRODEX_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRODEX_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PRODEX_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"prodex",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Extract structured product data (name, brand, price, currency, image, availability) from a product page URL. Reads JSON-LD, Next.js page data and Open Graph tags."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Maximum extraction time in seconds (1-120). Defaults to the server setting."),
		),
	)
	s.AddTool(extractTool, handleExtractProduct(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_extract_products",
		mcp.WithDescription("Extract product data from several product page URLs at once. Results come back in the order given."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of product page URLs (max 50)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-URL timeout in seconds (1-120)"),
		),
	)
	s.AddTool(batchTool, handleBatchExtract(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the prodex API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// clientTimeout leaves headroom over the server-side extraction timeout.
func clientTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 120
	}
	return time.Duration(seconds+10) * time.Second
}

func handleExtractProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		timeout := request.GetInt("timeout", 0)

		client := &http.Client{Timeout: clientTimeout(timeout)}
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/product",
			models.ProductRequest{URL: pageURL, Timeout: timeout})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ProductResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(describeError(resp.Error)), nil
		}

		return mcp.NewToolResultText(formatProduct(&resp)), nil
	}
}

func handleBatchExtract(apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}
		timeout := request.GetInt("timeout", 0)

		// Batches run a few URLs at a time server side.
		client := &http.Client{Timeout: clientTimeout(timeout) * time.Duration(len(urls)/5+1)}
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/product/batch",
			models.BatchRequest{URLs: urls, Timeout: timeout})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var resp models.BatchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil || resp.Results == nil {
			// A rejected batch comes back as a single ProductResponse.
			var single models.ProductResponse
			if json.Unmarshal(respBody, &single) == nil && single.Error != nil {
				return mcp.NewToolResultError(describeError(single.Error)), nil
			}
			return mcp.NewToolResultError("failed to parse batch response"), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Extracted %d of %d products\n", resp.Succeeded, resp.Total)
		for i, r := range resp.Results {
			fmt.Fprintf(&sb, "\n## %d. %s\n", i+1, urls[i])
			if r == nil || !r.Success {
				var detail *models.ErrorDetail
				if r != nil {
					detail = r.Error
				}
				sb.WriteString(describeError(detail))
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(formatProduct(r))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func describeError(detail *models.ErrorDetail) string {
	if detail == nil {
		return "extraction failed"
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

func formatProduct(resp *models.ProductResponse) string {
	out, err := json.MarshalIndent(resp.Product, "", "  ")
	if err != nil {
		return fmt.Sprintf("failed to format product: %v", err)
	}
	return fmt.Sprintf("%s\n\n---\nStrategy: %s | Total: %dms\n", out, resp.Strategy, resp.Timing.TotalMs)
}
