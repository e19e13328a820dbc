package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rednote/analyzer"
	"github.com/use-agent/rednote/models"
	"github.com/use-agent/rednote/scraper"
)

// noteService is the part of the scraper the tools drive.
type noteService interface {
	Login(ctx context.Context) (models.LoginResult, error)
	SearchNotes(ctx context.Context, keywords string, limit int) ([]models.NoteSummary, error)
	GetNoteContent(ctx context.Context, url string) (models.NoteRecord, error)
	GetNoteComments(ctx context.Context, url string) ([]models.CommentRecord, error)
	PostComment(ctx context.Context, url, text string) (models.PostResult, error)
}

// registerTools adds the seven note tools to s.
func registerTools(s *server.MCPServer, svc noteService) {
	s.AddTool(mcp.NewTool("login",
		mcp.WithDescription("Log in to Xiaohongshu. Opens the login page in the browser window and waits up to three minutes for the QR code to be scanned. Returns immediately when already logged in."),
	), handleLogin(svc))

	s.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search Xiaohongshu notes by keywords and return their titles and links."),
		mcp.WithString("keywords",
			mcp.Required(),
			mcp.Description("Search keywords"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 5)"),
		),
	), handleSearchNotes(svc))

	s.AddTool(mcp.NewTool("get_note_content",
		mcp.WithDescription("Read a note's title, author, publish time, tags and body. Requires login."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Note URL"),
		),
	), handleGetNoteContent(svc))

	s.AddTool(mcp.NewTool("get_note_comments",
		mcp.WithDescription("Read the comments under a note. Requires login."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Note URL"),
		),
	), handleGetNoteComments(svc))

	s.AddTool(mcp.NewTool("analyze_note",
		mcp.WithDescription("Read a note and classify it into content domains with its main keywords, as material for drafting a comment."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Note URL"),
		),
	), handleAnalyzeNote(svc))

	s.AddTool(mcp.NewTool("post_smart_comment",
		mcp.WithDescription("Analyse a note and return a drafting guide for a comment of the given style. Draft the comment from the guide, then publish it with post_comment."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Note URL"),
		),
		mcp.WithString("comment_type",
			mcp.Description("Comment style (default 引流)"),
			mcp.Enum("引流", "点赞", "咨询", "专业"),
		),
	), handlePostSmartComment(svc))

	s.AddTool(mcp.NewTool("post_comment",
		mcp.WithDescription("Publish a comment on a note. Requires login."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Note URL"),
		),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	), handlePostComment(svc))
}

func handleLogin(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := svc.Login(ctx)
		if err != nil {
			return toolError("登录时出错", err), nil
		}
		return mcp.NewToolResultText(res.Message), nil
	}
}

func handleSearchNotes(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keywords, err := request.RequireString("keywords")
		if err != nil {
			return mcp.NewToolResultError("keywords is required"), nil
		}
		limit := request.GetInt("limit", scraper.DefaultSearchLimit)

		notes, err := svc.SearchNotes(ctx, keywords, limit)
		if err != nil {
			return toolError("搜索笔记时出错", err), nil
		}
		return mcp.NewToolResultText(scraper.FormatSearch(keywords, notes)), nil
	}
}

func handleGetNoteContent(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		rec, err := svc.GetNoteContent(ctx, url)
		if err != nil {
			return toolError("获取笔记内容时出错", err), nil
		}
		return mcp.NewToolResultText(scraper.FormatNote(rec)), nil
	}
}

func handleGetNoteComments(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		comments, err := svc.GetNoteComments(ctx, url)
		if err != nil {
			return toolError("获取评论时出错", err), nil
		}
		return mcp.NewToolResultText(scraper.FormatComments(comments)), nil
	}
}

func handleAnalyzeNote(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		rec, err := svc.GetNoteContent(ctx, url)
		if err != nil {
			return toolError("分析笔记内容时出错", err), nil
		}
		return jsonResult(analyzer.Analyze(rec))
	}
}

func handlePostSmartComment(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		commentType := request.GetString("comment_type", analyzer.DefaultCommentType)

		rec, err := svc.GetNoteContent(ctx, url)
		if err != nil {
			return toolError("分析笔记内容时出错", err), nil
		}
		return jsonResult(analyzer.PlanComment(analyzer.Analyze(rec), commentType))
	}
}

func handlePostComment(svc noteService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		comment, err := request.RequireString("comment")
		if err != nil {
			return mcp.NewToolResultError("comment is required"), nil
		}

		res, err := svc.PostComment(ctx, url, comment)
		if err != nil {
			return toolError("发布评论时出错", err), nil
		}
		return mcp.NewToolResultText(res.Message), nil
	}
}

// toolError reports err to the client. Coded errors carry a message meant
// for the user; anything else is prefixed with what was being attempted.
func toolError(doing string, err error) *mcp.CallToolResult {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return mcp.NewToolResultError(se.Message)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", doing, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
