package store

import (
	"fmt"
	"strings"

	"github.com/use-agent/rednote/models"
)

// Render formats rec as the Markdown record the front end displays.
// imageRef is the image URL to link.
func Render(rec models.NoteRecord, imageRef string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Title)
	fmt.Fprintf(&b, "- 作者：%s\n", rec.Author)
	fmt.Fprintf(&b, "- 发布时间：%s\n", rec.PublishedAt)
	tags := "无"
	if len(rec.Tags) > 0 {
		tags = strings.Join(rec.Tags, "、")
	}
	fmt.Fprintf(&b, "- 标签：%s\n", tags)

	fmt.Fprintf(&b, "\n## 正文\n\n%s\n\n", rec.Body)
	fmt.Fprintf(&b, "## 图片\n\n![](%s)\n\n", imageRef)

	if len(rec.Comments) > 0 {
		b.WriteString("## 评论\n\n")
		for k, c := range rec.Comments {
			fmt.Fprintf(&b, "%d. %s（%s）: %s\n\n", k+1, c.Username, c.PostedAt, c.Body)
		}
	}
	return b.String()
}
