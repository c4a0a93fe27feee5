package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/report"
	"github.com/bobmcallan/stock-predictor/internal/tickers"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

// RegisterTools adds every tool to s and returns how many were registered.
func RegisterTools(s *server.MCPServer, generator view.Generator, quickAdd []string, logger *common.Logger) int {
	s.AddTool(GenerateReportTool(), GenerateReportHandler(generator, logger))
	s.AddTool(QuickAddTool(), QuickAddHandler(quickAdd))
	s.AddTool(VersionTool(), VersionToolHandler())
	return 3
}

// GenerateReportTool returns the generate_stock_report tool definition.
func GenerateReportTool() mcp.Tool {
	return mcp.NewTool("generate_stock_report",
		mcp.WithDescription(fmt.Sprintf(
			"Fetch recent daily prices for up to %d stock tickers and return a markdown report with a buy, hold or sell view for each. Not financial advice.",
			tickers.MaxTickers)),
		mcp.WithArray("tickers", mcp.WithStringItems(), mcp.Required(),
			mcp.Description("Ticker symbols, 1 to 5 letters or digits each (e.g. ['NVDA', 'AAPL'])")),
	)
}

// GenerateReportHandler validates the tickers the same way the page does
// and runs one report generation.
func GenerateReportHandler(generator view.Generator, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := r.GetStringSlice("tickers", nil)
		if len(raw) == 0 {
			return errorResult("tickers is required"), nil
		}

		set, err := tickers.FromSymbols(raw)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		symbols := set.Symbols()
		if len(symbols) == 0 {
			return errorResult("tickers is required"), nil
		}

		start := time.Now()
		content, err := generator.Generate(ctx, symbols)
		if err != nil {
			logger.Error().Strs("tickers", symbols).Err(err).Msg("MCP report generation failed")
			msg := "No content available right now. Please try again later."
			if errors.Is(err, report.ErrDataFetchFailed) {
				msg = "Market data could not be fetched. Please try again later."
			}
			return errorResult(msg), nil
		}

		logger.Info().
			Strs("tickers", symbols).
			Dur("duration", time.Since(start)).
			Msg("MCP report generated")

		return textResult(content), nil
	}
}

// QuickAddTool returns the list_quick_add_tickers tool definition.
func QuickAddTool() mcp.Tool {
	return mcp.NewTool("list_quick_add_tickers",
		mcp.WithDescription("List the well-known tickers offered as one-click shortcuts on the page."),
	)
}

// QuickAddHandler returns the configured shortcut list as JSON.
func QuickAddHandler(quickAdd []string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := json.Marshal(map[string]interface{}{
			"tickers":     quickAdd,
			"max_tickers": tickers.MaxTickers,
		})
		if err != nil {
			return errorResult("failed to marshal quick-add tickers"), nil
		}
		return textResult(string(out)), nil
	}
}
