package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rednote/models"
)

type fakeService struct {
	login    models.LoginResult
	notes    []models.NoteSummary
	note     models.NoteRecord
	comments []models.CommentRecord
	post     models.PostResult
	err      error

	searchLimit int
	posted      string
}

func (f *fakeService) Login(ctx context.Context) (models.LoginResult, error) { return f.login, f.err }

func (f *fakeService) SearchNotes(ctx context.Context, keywords string, limit int) ([]models.NoteSummary, error) {
	f.searchLimit = limit
	return f.notes, f.err
}

func (f *fakeService) GetNoteContent(ctx context.Context, url string) (models.NoteRecord, error) {
	return f.note, f.err
}

func (f *fakeService) GetNoteComments(ctx context.Context, url string) ([]models.CommentRecord, error) {
	return f.comments, f.err
}

func (f *fakeService) PostComment(ctx context.Context, url, text string) (models.PostResult, error) {
	f.posted = text
	return f.post, f.err
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("result has %d content items, want 1", len(res.Content))
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	default:
		t.Fatalf("content is %T, want text", res.Content[0])
		return "", false
	}
}

const note = "https://www.xiaohongshu.com/explore/1"

func TestSearchNotesTool(t *testing.T) {
	svc := &fakeService{notes: []models.NoteSummary{{URL: note, Title: "秋冬口红"}}}

	text, isErr := call(t, handleSearchNotes(svc), map[string]any{"keywords": "口红"})
	if isErr {
		t.Fatalf("unexpected error result %q", text)
	}
	if want := "搜索结果：\n\n1. 秋冬口红\n   链接: " + note + "\n\n"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
	if svc.searchLimit != 5 {
		t.Errorf("limit = %d, want default 5", svc.searchLimit)
	}

	call(t, handleSearchNotes(svc), map[string]any{"keywords": "口红", "limit": float64(2)})
	if svc.searchLimit != 2 {
		t.Errorf("limit = %d, want 2", svc.searchLimit)
	}

	if _, isErr := call(t, handleSearchNotes(svc), map[string]any{}); !isErr {
		t.Error("missing keywords should be an error result")
	}
}

func TestToolErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded error keeps its message", models.NewScrapeError(models.ErrCodeNotLoggedIn, "请先登录小红书账号", nil), "请先登录小红书账号"},
		{"plain error is prefixed", errors.New("browser crashed"), "获取笔记内容时出错: browser crashed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, handleGetNoteContent(&fakeService{err: tt.err}), map[string]any{"url": note})
			if !isErr || text != tt.want {
				t.Errorf("got (%q, %v), want (%q, true)", text, isErr, tt.want)
			}
		})
	}
}

func TestGetNoteCommentsTool(t *testing.T) {
	text, _ := call(t, handleGetNoteComments(&fakeService{comments: []models.CommentRecord{}}), map[string]any{"url": note})
	if text != "未找到任何评论，可能是帖子没有评论或评论区无法访问。" {
		t.Errorf("text = %q", text)
	}
}

func TestAnalyzeAndPlanTools(t *testing.T) {
	svc := &fakeService{note: models.NoteRecord{
		URL:    note,
		Title:  "秋冬口红试色",
		Author: "小美",
		Body:   "这支口红很显白",
	}}

	text, isErr := call(t, handleAnalyzeNote(svc), map[string]any{"url": note})
	if isErr {
		t.Fatalf("analyze_note error: %s", text)
	}
	var analysis models.NoteAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if diff := cmp.Diff([]string{"美妆"}, analysis.Domains); diff != "" {
		t.Errorf("domains mismatch (-want +got):\n%s", diff)
	}

	text, _ = call(t, handlePostSmartComment(svc), map[string]any{"url": note, "comment_type": "咨询"})
	var plan models.CommentPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.CommentType != "咨询" || !strings.Contains(plan.CommentGuide, "请问博主") || plan.URL != note {
		t.Errorf("plan = %+v", plan)
	}
	if !strings.Contains(plan.Message, "post_comment") {
		t.Errorf("plan message should point at post_comment: %q", plan.Message)
	}
}

func TestPostCommentTool(t *testing.T) {
	svc := &fakeService{post: models.PostResult{Success: false, Message: "发布评论失败，请检查评论内容或网络连接"}}

	text, isErr := call(t, handlePostComment(svc), map[string]any{"url": note, "comment": "好看"})
	if isErr || text != "发布评论失败，请检查评论内容或网络连接" {
		t.Errorf("got (%q, %v)", text, isErr)
	}
	if svc.posted != "好看" {
		t.Errorf("posted %q", svc.posted)
	}

	if _, isErr := call(t, handlePostComment(svc), map[string]any{"url": note}); !isErr {
		t.Error("missing comment should be an error result")
	}
}

func TestLoginTool(t *testing.T) {
	svc := &fakeService{login: models.LoginResult{Status: models.LoginAlready, Message: "已登录小红书账号"}}
	if text, _ := call(t, handleLogin(svc), nil); text != "已登录小红书账号" {
		t.Errorf("text = %q", text)
	}
}
