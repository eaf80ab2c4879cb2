// Package mcp exposes the analytics read model as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/salesscope/internal/auth"
	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const (
	serverName    = "salesscope"
	serverVersion = "1.0.0"
)

// Server registers the analytics tools on an MCP server. Every tool resolves the
// organization from the principal the auth middleware placed in the context.
type Server struct {
	mcp       *server.MCPServer
	analytics ports.AnalyticsService
}

func NewServer(analytics ports.AnalyticsService) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true)),
		analytics: analytics,
	}
	s.registerDatasetTools()
	s.registerOrganizationTools()
	return s
}

// MCP returns the underlying server, mainly for tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler serves the tools over the streamable HTTP transport. Routing to /mcp is left to the caller.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

func (s *Server) registerDatasetTools() {
	s.mcp.AddTool(datasetTool("get_kpis",
		"Total revenue, sale count, average revenue and total quantity of a dataset."),
		datasetHandler(s, "get_kpis", func(ctx context.Context, org, id string, f domain.AnalyticsFilter, _ mcp.CallToolRequest) (any, error) {
			return s.analytics.KPIs(ctx, org, id, f)
		}))

	s.mcp.AddTool(datasetTool("get_revenue_by_date",
		"Revenue and quantity bucketed by day, week or month depending on the covered date span."),
		datasetHandler(s, "get_revenue_by_date", func(ctx context.Context, org, id string, f domain.AnalyticsFilter, _ mcp.CallToolRequest) (any, error) {
			return s.analytics.RevenueByDate(ctx, org, id, f)
		}))

	s.mcp.AddTool(datasetTool("get_revenue_by_category",
		"Revenue and record count per category, highest revenue first."),
		datasetHandler(s, "get_revenue_by_category", func(ctx context.Context, org, id string, f domain.AnalyticsFilter, _ mcp.CallToolRequest) (any, error) {
			return s.analytics.RevenueByCategory(ctx, org, id, f)
		}))

	s.mcp.AddTool(datasetTool("get_revenue_by_product",
		"Top products by revenue.",
		mcp.WithNumber("limit", mcp.Description("Maximum number of products (default 10, max 100)"))),
		datasetHandler(s, "get_revenue_by_product", func(ctx context.Context, org, id string, f domain.AnalyticsFilter, req mcp.CallToolRequest) (any, error) {
			return s.analytics.RevenueByProduct(ctx, org, id, f, req.GetInt("limit", 0))
		}))

	s.mcp.AddTool(
		mcp.NewTool("get_available_filters",
			mcp.WithDescription("Distinct categories and products of a dataset, sorted."),
			mcp.WithString("datasetId", mcp.Required(), mcp.Description("Dataset UUID")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			principal, errResult := requirePrincipal(ctx)
			if errResult != nil {
				return errResult, nil
			}
			datasetID, err := req.RequireString("datasetId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := s.analytics.AvailableFilters(ctx, principal.OrganizationID, datasetID)
			return toolResult("get_available_filters", out, err)
		})
}

func (s *Server) registerOrganizationTools() {
	s.mcp.AddTool(
		mcp.NewTool("get_overview",
			mcp.WithDescription("Organization-wide revenue, sale and dataset counts with recent activity."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			principal, errResult := requirePrincipal(ctx)
			if errResult != nil {
				return errResult, nil
			}
			out, err := s.analytics.Overview(ctx, principal.OrganizationID)
			return toolResult("get_overview", out, err)
		})

	s.mcp.AddTool(
		mcp.NewTool("get_trends",
			mcp.WithDescription("Daily revenue and quantity for the last 30 days plus today."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			principal, errResult := requirePrincipal(ctx)
			if errResult != nil {
				return errResult, nil
			}
			out, err := s.analytics.Trends(ctx, principal.OrganizationID)
			return toolResult("get_trends", out, err)
		})
}

type datasetQuery func(ctx context.Context, organizationID, datasetID string, filter domain.AnalyticsFilter, req mcp.CallToolRequest) (any, error)

func datasetTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("datasetId", mcp.Required(), mcp.Description("Dataset UUID")),
		mcp.WithString("startDate", mcp.Description("Inclusive lower bound, ISO-8601 date")),
		mcp.WithString("endDate", mcp.Description("Inclusive upper bound, ISO-8601 date")),
		mcp.WithString("category", mcp.Description("Exact category match")),
		mcp.WithString("product", mcp.Description("Exact product match")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}
	return mcp.NewTool(name, append(opts, extra...)...)
}

func datasetHandler(s *Server, name string, query datasetQuery) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, errResult := requirePrincipal(ctx)
		if errResult != nil {
			return errResult, nil
		}
		datasetID, err := req.RequireString("datasetId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter, err := domain.ParseFilter(
			req.GetString("startDate", ""),
			req.GetString("endDate", ""),
			req.GetString("category", ""),
			req.GetString("product", ""),
		)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := query(ctx, principal.OrganizationID, datasetID, filter, req)
		return toolResult(name, out, err)
	}
}

func requirePrincipal(ctx context.Context) (domain.Principal, *mcp.CallToolResult) {
	principal, ok := auth.PrincipalFrom(ctx)
	if !ok || principal.OrganizationID == "" {
		return domain.Principal{}, mcp.NewToolResultError("unauthorized: missing organization")
	}
	return principal, nil
}

// toolResult reports domain failures as tool errors so the client model can read them.
// Only unexpected failures surface as protocol errors.
func toolResult(tool string, out any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		switch {
		case domain.IsKind(err, domain.ErrNotFound),
			domain.IsKind(err, domain.ErrInvalidInput),
			domain.IsKind(err, domain.ErrUnauthorized):
			return mcp.NewToolResultError(err.Error()), nil
		case errors.Is(err, context.Canceled):
			return nil, err
		}
		slog.Error("mcp_tool_failed", "tool", tool, "error", err.Error())
		return nil, fmt.Errorf("%s: %w", tool, err)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", tool, err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
