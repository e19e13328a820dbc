package scraper_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/rednote/models"
	"github.com/use-agent/rednote/scraper"
)

func TestFormatSearch(t *testing.T) {
	got := scraper.FormatSearch("口红", []models.NoteSummary{
		{URL: home + "/explore/1", Title: "秋冬口红推荐"},
		{URL: home + "/explore/2", Title: models.UnknownTitle},
	})
	want := "搜索结果：\n\n" +
		"1. 秋冬口红推荐\n   链接: " + home + "/explore/1\n\n" +
		"2. " + models.UnknownTitle + "\n   链接: " + home + "/explore/2\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatSearch mismatch (-want +got):\n%s", diff)
	}

	if got := scraper.FormatSearch("口红", nil); got != `未找到与"口红"相关的笔记` {
		t.Errorf("empty FormatSearch = %q", got)
	}
}

func TestFormatNote(t *testing.T) {
	rec := models.NoteRecord{
		URL:         home + "/explore/1",
		Title:       "秋冬口红合集",
		Author:      "小红薯123",
		PublishedAt: "2024-11-02",
		Body:        "三款口红",
	}
	want := "标题: 秋冬口红合集\n" +
		"作者: 小红薯123\n" +
		"发布时间: 2024-11-02\n" +
		"链接: " + home + "/explore/1\n\n" +
		"内容:\n三款口红"
	if diff := cmp.Diff(want, scraper.FormatNote(rec)); diff != "" {
		t.Errorf("FormatNote mismatch (-want +got):\n%s", diff)
	}

	rec.Tags = []string{"#口红", "#秋冬"}
	want = "标题: 秋冬口红合集\n" +
		"作者: 小红薯123\n" +
		"发布时间: 2024-11-02\n" +
		"标签: #口红、#秋冬\n" +
		"链接: " + home + "/explore/1\n\n" +
		"内容:\n三款口红"
	if diff := cmp.Diff(want, scraper.FormatNote(rec)); diff != "" {
		t.Errorf("FormatNote with tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatComments(t *testing.T) {
	got := scraper.FormatComments([]models.CommentRecord{
		{Username: "阿花", Body: "好看", PostedAt: "3天前"},
	})
	want := "共获取到 1 条评论：\n\n1. 阿花（3天前）: 好看\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatComments mismatch (-want +got):\n%s", diff)
	}

	if got := scraper.FormatComments(nil); got != "未找到任何评论，可能是帖子没有评论或评论区无法访问。" {
		t.Errorf("empty FormatComments = %q", got)
	}
}
