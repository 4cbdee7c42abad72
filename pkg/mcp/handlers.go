package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/alive/pkg/moments"
)

// RegisterAllTools registers every tool backed by store.
func RegisterAllTools(s *server.MCPServer, store *moments.Store) {
	RegisterPingTool(s)
	RegisterListMomentsTool(s, store)
	RegisterListPublicMomentsTool(s, store)
	RegisterSaveMomentTool(s, store)
	RegisterUpdateMomentTool(s, store)
	RegisterDeleteMomentTool(s, store)
	RegisterSendSunshineTool(s, store)
	RegisterSearchMomentsTool(s, store)
	RegisterGetStatsTool(s, store)
	RegisterGetTimelineTool(s, store)
	RegisterGetProfileTool(s, store)
	RegisterSaveProfileTool(s, store)
	RegisterClearProfileTool(s, store)
	RegisterClearAllTool(s, store)
}

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Alive MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_alive"), nil
}

func RegisterListMomentsTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("list_moments",
		mcp.WithDescription("Lists your own moments, newest first."),
	)
	s.AddTool(tool, listMomentsHandler(store))
}

func listMomentsHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(nonNil(store.ListMoments(ctx)), "moments")
	}
}

func RegisterListPublicMomentsTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("list_public_moments",
		mcp.WithDescription("Lists the public feed: your public moments mixed with moments from others, newest first."),
	)
	s.AddTool(tool, listPublicMomentsHandler(store))
}

func listPublicMomentsHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(nonNil(store.ListPublicMoments(ctx)), "feed")
	}
}

// RegisterSaveMomentTool registers the save_moment tool.
func RegisterSaveMomentTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("save_moment",
		mcp.WithDescription("Records a new moment and advances the daily streak."),
		mcp.WithString("content", mcp.Description("What happened. May be empty when images are given.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags, e.g. '#small-joys,#loved'.")),
		mcp.WithBoolean("is_public", mcp.Description("Share the moment on the public feed. Defaults to false.")),
		mcp.WithString("images", mcp.Description("Optional image data URLs, one per line (at most 3).")),
	)
	s.AddTool(tool, saveMomentHandler(store))
}

func saveMomentHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, _ := request.Params.Arguments["content"].(string)
		tagsStr, _ := request.Params.Arguments["tags"].(string)
		imagesStr, _ := request.Params.Arguments["images"].(string)
		isPublic, _ := request.Params.Arguments["is_public"].(bool)

		images := parseImages(imagesStr)
		if err := moments.Validate(content, images); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid moment: %v", err)), nil
		}

		all, err := store.SaveMoment(ctx, content, parseTags(tagsStr), isPublic, images)
		if errors.Is(err, moments.ErrStreakNotUpdated) {
			// The moment is stored; a retry would duplicate it.
			res, _ := jsonResult(all[0], "moment")
			res.Content = append(res.Content, mcp.NewTextContent(fmt.Sprintf("Warning: %v. Do not save this moment again.", err)))
			return res, nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to save moment: %v", err)), nil
		}
		return jsonResult(all[0], "moment")
	}
}

// RegisterUpdateMomentTool registers the update_moment tool.
func RegisterUpdateMomentTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("update_moment",
		mcp.WithDescription("Changes the visibility or sunshine count of one of your moments."),
		mcp.WithString("id", mcp.Required(), mcp.Description("ID of the moment to update.")),
		mcp.WithBoolean("is_public", mcp.Description("Optional new visibility.")),
		mcp.WithNumber("sunshine_count", mcp.Description("Optional new sunshine count.")),
	)
	s.AddTool(tool, updateMomentHandler(store))
}

func updateMomentHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := request.Params.Arguments["id"].(string)
		if !idOk || id == "" {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}

		var patch moments.Patch
		if pub, ok := request.Params.Arguments["is_public"].(bool); ok {
			patch.IsPublic = &pub
		}
		if n, ok := request.Params.Arguments["sunshine_count"].(float64); ok {
			if n < 0 {
				return mcp.NewToolResultError("'sunshine_count' cannot be negative."), nil
			}
			if n != math.Trunc(n) || n > math.MaxInt32 {
				return mcp.NewToolResultError("'sunshine_count' must be a whole number no larger than 2147483647."), nil
			}
			count := int(n)
			patch.SunshineCount = &count
		}
		if patch.IsPublic == nil && patch.SunshineCount == nil {
			return mcp.NewToolResultError("No update fields provided (use is_public or sunshine_count)."), nil
		}

		all, err := store.UpdateMoment(ctx, id, patch)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update moment '%s': %v", id, err)), nil
		}
		m, found := findMoment(all, id)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("Moment with id '%s' not found.", id)), nil
		}
		return jsonResult(m, "moment")
	}
}

func RegisterDeleteMomentTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("delete_moment",
		mcp.WithDescription("Deletes one of your moments. The streak is not affected."),
		mcp.WithString("id", mcp.Required(), mcp.Description("ID of the moment to delete.")),
	)
	s.AddTool(tool, deleteMomentHandler(store))
}

func deleteMomentHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := request.Params.Arguments["id"].(string)
		if !idOk || id == "" {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		if _, found := findMoment(store.ListMoments(ctx), id); !found {
			return mcp.NewToolResultError(fmt.Sprintf("Moment with id '%s' not found.", id)), nil
		}
		if _, err := store.DeleteMoment(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete moment '%s': %v", id, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Moment '%s' deleted.", id)), nil
	}
}

func RegisterSendSunshineTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("send_sunshine",
		mcp.WithDescription("Sends one sunshine to a moment on the public feed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("ID of the feed moment.")),
	)
	s.AddTool(tool, sendSunshineHandler(store))
}

func sendSunshineHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := request.Params.Arguments["id"].(string)
		if !idOk || id == "" {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		feed, err := store.SendSunshine(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send sunshine: %v", err)), nil
		}
		m, found := findMoment(feed, id)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("Moment with id '%s' is not on the public feed.", id)), nil
		}
		return jsonResult(m, "moment")
	}
}

// RegisterSearchMomentsTool registers the search_moments tool.
func RegisterSearchMomentsTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("search_moments",
		mcp.WithDescription("Finds your moments by tags. Results are ranked by the number of matching tags, newest first among ties."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated list of tags to search for.")),
	)
	s.AddTool(tool, searchMomentsHandler(store))
}

func searchMomentsHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tagsStr, _ := request.Params.Arguments["tags"].(string)
		tags := parseTags(tagsStr)
		if len(tags) == 0 {
			return mcp.NewToolResultError("'tags' parameter is required and must contain at least one tag."), nil
		}
		return jsonResult(store.SearchByTags(ctx, tags), "search results")
	}
}

// statsView adds the growth stage to the stats record.
type statsView struct {
	moments.UserStats
	GrowthStage moments.GrowthStage `json:"growthStage"`
}

func RegisterGetStatsTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("get_stats",
		mcp.WithDescription("Returns the current streak, totals and growth stage."),
	)
	s.AddTool(tool, getStatsHandler(store))
}

func getStatsHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st := store.Stats(ctx)
		return jsonResult(statsView{UserStats: st, GrowthStage: moments.GrowthStageFor(st.StreakDays)}, "stats")
	}
}

func RegisterGetTimelineTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("get_timeline",
		mcp.WithDescription("Returns your moments grouped by day, newest day first."),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groups := store.Timeline(ctx)
		if groups == nil {
			groups = []moments.DayGroup{}
		}
		return jsonResult(groups, "timeline")
	})
}

func RegisterGetProfileTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("get_profile",
		mcp.WithDescription("Returns the stored user profile, if any."),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profile, ok := store.Profile(ctx)
		if !ok {
			return mcp.NewToolResultError("No profile stored (not logged in)."), nil
		}
		return jsonResult(profile, "profile")
	})
}

func RegisterSaveProfileTool(s *server.MCPServer, store *moments.Store) {
	defaults := moments.DefaultProfile()
	tool := mcp.NewTool("save_profile",
		mcp.WithDescription("Stores the user profile (login)."),
		mcp.WithString("nick_name", mcp.DefaultString(defaults.NickName), mcp.Description("Display name.")),
		mcp.WithString("avatar_url", mcp.DefaultString(defaults.AvatarURL), mcp.Description("Avatar image URL.")),
	)
	s.AddTool(tool, saveProfileHandler(store))
}

func saveProfileHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profile := moments.DefaultProfile()
		if name, ok := request.Params.Arguments["nick_name"].(string); ok && name != "" {
			profile.NickName = name
		}
		if url, ok := request.Params.Arguments["avatar_url"].(string); ok && url != "" {
			profile.AvatarURL = url
		}
		if err := store.SaveProfile(ctx, profile); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to save profile: %v", err)), nil
		}
		return jsonResult(profile, "profile")
	}
}

func RegisterClearProfileTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("clear_profile",
		mcp.WithDescription("Removes the stored profile (logout). Moments and streak are kept."),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := store.ClearProfile(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to clear profile: %v", err)), nil
		}
		return mcp.NewToolResultText("Profile cleared."), nil
	})
}

func RegisterClearAllTool(s *server.MCPServer, store *moments.Store) {
	tool := mcp.NewTool("clear_all",
		mcp.WithDescription("Erases all moments, the streak and the profile. Cannot be undone."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true.")),
	)
	s.AddTool(tool, clearAllHandler(store))
}

func clearAllHandler(store *moments.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if confirm, _ := request.Params.Arguments["confirm"].(bool); !confirm {
			return mcp.NewToolResultError("'confirm' must be true to erase all data."), nil
		}
		if err := store.ClearAll(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to clear data: %v", err)), nil
		}
		return mcp.NewToolResultText("All data cleared."), nil
	}
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize %s to JSON: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
