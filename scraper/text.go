package scraper

import (
	"fmt"
	"strings"

	"github.com/use-agent/rednote/models"
)

// The Format functions render operation results as the plain text handed
// to MCP clients.

// FormatSearch renders a search result list.
func FormatSearch(keywords string, notes []models.NoteSummary) string {
	if len(notes) == 0 {
		return fmt.Sprintf("未找到与\"%s\"相关的笔记", keywords)
	}
	var b strings.Builder
	b.WriteString("搜索结果：\n\n")
	for i, n := range notes {
		fmt.Fprintf(&b, "%d. %s\n   链接: %s\n\n", i+1, n.Title, n.URL)
	}
	return b.String()
}

// FormatNote renders a note detail block.
func FormatNote(rec models.NoteRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "标题: %s\n", rec.Title)
	fmt.Fprintf(&b, "作者: %s\n", rec.Author)
	fmt.Fprintf(&b, "发布时间: %s\n", rec.PublishedAt)
	if len(rec.Tags) > 0 {
		fmt.Fprintf(&b, "标签: %s\n", strings.Join(rec.Tags, "、"))
	}
	fmt.Fprintf(&b, "链接: %s\n\n", rec.URL)
	fmt.Fprintf(&b, "内容:\n%s", rec.Body)
	return b.String()
}

// FormatComments renders a numbered comment list.
func FormatComments(comments []models.CommentRecord) string {
	if len(comments) == 0 {
		return "未找到任何评论，可能是帖子没有评论或评论区无法访问。"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "共获取到 %d 条评论：\n\n", len(comments))
	for i, c := range comments {
		fmt.Fprintf(&b, "%d. %s（%s）: %s\n\n", i+1, c.Username, c.PostedAt, c.Body)
	}
	return b.String()
}
