// Package tools provides MCP tool implementations for passport-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/auth"
	"github.com/tracewear/passport-engine/pkg/database"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/services"
)

// MappingToolDeps contains dependencies for mapping tools.
type MappingToolDeps struct {
	DB             *database.DB
	MappingService services.ValueMappingService
	Logger         *zap.Logger
}

// RegisterMappingTools registers value-mapping MCP tools.
func RegisterMappingTools(s *server.MCPServer, deps *MappingToolDeps) {
	registerResolveValueTool(s, deps)
	registerSuggestMatchesTool(s, deps)
}

// brandScope authenticates the caller and opens a tenant-scoped database
// connection for the tool call.
func brandScope(ctx context.Context, deps *MappingToolDeps) (uuid.UUID, context.Context, func(), error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return uuid.Nil, nil, nil, fmt.Errorf("authentication required")
	}

	brandID, err := uuid.Parse(claims.BrandID)
	if err != nil {
		return uuid.Nil, nil, nil, fmt.Errorf("invalid brand ID: %w", err)
	}

	scope, err := deps.DB.WithTenant(ctx, brandID)
	if err != nil {
		return uuid.Nil, nil, nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}

	tenantCtx := database.SetTenantScope(ctx, scope)
	return brandID, tenantCtx, func() { scope.Close() }, nil
}

func parseToolEntityType(req mcp.CallToolRequest) (models.EntityType, error) {
	raw, err := req.RequireString("entity_type")
	if err != nil {
		return "", err
	}
	return models.ParseEntityType(raw)
}

// registerResolveValueTool adds the resolve_value tool: run the exact-match
// resolution ladder for a single raw value.
func registerResolveValueTool(s *server.MCPServer, deps *MappingToolDeps) {
	tool := mcp.NewTool(
		"resolve_value",
		mcp.WithDescription(
			"Resolve a raw imported value against the brand catalog. "+
				"Returns the matched entity id with confidence 100 on an exact match, "+
				"or found=false when no exact match exists. "+
				"entity_type is one of: material, category, eco_claim. "+
				"Example: resolve_value(entity_type='material', value='Organic Cotton', source_column='material_1_name').",
		),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Catalog entity type: material, category, or eco_claim")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Raw imported value to resolve")),
		mcp.WithString("source_column", mcp.Required(), mcp.Description("Source column the value came from")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		brandID, tenantCtx, cleanup, err := brandScope(ctx, deps)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		entityType, err := parseToolEntityType(req)
		if err != nil {
			return nil, err
		}
		value, err := req.RequireString("value")
		if err != nil {
			return nil, err
		}
		sourceColumn, err := req.RequireString("source_column")
		if err != nil {
			return nil, err
		}

		result, err := deps.MappingService.Resolve(tenantCtx, brandID, entityType, value, sourceColumn)
		if err != nil {
			deps.Logger.Error("resolve_value failed",
				zap.String("brand_id", brandID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("failed to resolve value: %w", err)
		}

		out, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	})
}

// registerSuggestMatchesTool adds the suggest_matches tool: fuzzy candidates
// for a value the resolver could not match.
func registerSuggestMatchesTool(s *server.MCPServer, deps *MappingToolDeps) {
	tool := mcp.NewTool(
		"suggest_matches",
		mcp.WithDescription(
			"Suggest catalog entities that fuzzily match an unmapped raw value. "+
				"Returns up to five candidates ranked by similarity (0-100); nothing is written. "+
				"Use resolve_value first; call this only when it reports found=false. "+
				"Example: suggest_matches(entity_type='material', value='Catton').",
		),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Catalog entity type: material, category, or eco_claim")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Unmapped raw value")),
		mcp.WithString("source_column", mcp.Description("Source column the value came from")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		brandID, tenantCtx, cleanup, err := brandScope(ctx, deps)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		entityType, err := parseToolEntityType(req)
		if err != nil {
			return nil, err
		}
		value, err := req.RequireString("value")
		if err != nil {
			return nil, err
		}

		var sourceColumn string
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			sourceColumn, _ = args["source_column"].(string)
		}

		suggestions, err := deps.MappingService.Suggest(tenantCtx, brandID, &models.UnmappedValue{
			EntityType:   entityType,
			RawValue:     value,
			SourceColumn: sourceColumn,
		})
		if err != nil {
			deps.Logger.Error("suggest_matches failed",
				zap.String("brand_id", brandID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("failed to compute suggestions: %w", err)
		}

		out, err := json.Marshal(map[string]any{
			"suggestions": suggestions,
			"total":       len(suggestions),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	})
}
