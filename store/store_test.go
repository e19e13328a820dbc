package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/rednote/models"
)

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "冬季穿搭", want: "冬季穿搭"},
		{in: "口红 / 试色!! 合集", want: "口红_试色_合集"},
		{in: "../../etc/passwd", want: "_etc_passwd"},
		{in: "snake_case ok", want: "snake_case_ok"},
		{in: "这是一个非常非常非常长的标题它一定会超过三十个字符的限制然后被截断", want: "这是一个非常非常非常长的标题它一定会超过三十个字符的限制然后"},
		{in: "", want: "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeTitle(tt.in); got != tt.want {
				t.Errorf("SafeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func sampleRecord() models.NoteRecord {
	return models.NoteRecord{
		URL:         "https://www.xiaohongshu.com/explore/abc",
		Title:       "秋冬口红推荐",
		Author:      "小美",
		PublishedAt: "3天前",
		Body:        "今天分享三款口红。",
		Tags:        []string{"#口红", "#美妆"},
		Comments: []models.CommentRecord{
			{Username: "小红", Body: "好看", PostedAt: "昨天"},
			{Username: "阿黄", Body: "求色号", PostedAt: models.UnknownCommentTime},
		},
	}
}

func TestRender(t *testing.T) {
	want := "# 秋冬口红推荐\n\n" +
		"- 作者：小美\n" +
		"- 发布时间：3天前\n" +
		"- 标签：#口红、#美妆\n" +
		"\n## 正文\n\n今天分享三款口红。\n\n" +
		"## 图片\n\n![](/notes_img/x.png)\n\n" +
		"## 评论\n\n" +
		"1. 小红（昨天）: 好看\n\n" +
		"2. 阿黄（未知时间）: 求色号\n\n"

	if diff := cmp.Diff(want, Render(sampleRecord(), "/notes_img/x.png")); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderWithoutTagsOrComments(t *testing.T) {
	rec := sampleRecord()
	rec.Tags, rec.Comments = nil, nil

	want := "# 秋冬口红推荐\n\n" +
		"- 作者：小美\n" +
		"- 发布时间：3天前\n" +
		"- 标签：无\n" +
		"\n## 正文\n\n今天分享三款口红。\n\n" +
		"## 图片\n\n![](" + PlaceholderImage + ")\n\n"

	if diff := cmp.Diff(want, Render(rec, PlaceholderImage)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveListOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files, err := s.Save(sampleRecord(), 1, []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff([]string{"note_秋冬口红推荐_1.md", "note_秋冬口红推荐_1.png"}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	rec := sampleRecord()
	rec.Title = "第二条"
	if _, err := s.Save(rec, 2, nil); err != nil {
		t.Fatalf("Save without image: %v", err)
	}

	notes, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("List returned %d notes, want 2", len(notes))
	}
	if notes[0].Filename != "note_秋冬口红推荐_1.md" || notes[1].Filename != "note_第二条_2.md" {
		t.Errorf("List order = %q, %q", notes[0].Filename, notes[1].Filename)
	}
	if notes[0].Content != Render(sampleRecord(), "/notes_img/note_秋冬口红推荐_1.png") {
		t.Errorf("stored content does not link the saved image:\n%s", notes[0].Content)
	}

	f, err := s.Open("note_秋冬口红推荐_1.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "png-bytes" {
		t.Errorf("image content = %q", data)
	}
}

func TestOpenRejectsPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "notes"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		code string
	}{
		{name: "../secret.txt", code: models.ErrCodeInvalidInput},
		{name: "..", code: models.ErrCodeInvalidInput},
		{name: "", code: models.ErrCodeInvalidInput},
		{name: `..\secret.txt`, code: models.ErrCodeInvalidInput},
		{name: "missing.png", code: models.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(tt.name)
			if got := models.CodeOf(err); got != tt.code {
				t.Errorf("Open(%q) code = %q, want %q", tt.name, got, tt.code)
			}
		})
	}
}

func TestListEmptyDir(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notes, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if notes == nil || len(notes) != 0 {
		t.Errorf("List = %#v, want empty non-nil slice", notes)
	}
}
