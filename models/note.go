package models

// Sentinels for fields the scraper could not find. They are distinct from an
// empty string so callers can tell "absent from the page" from "legitimately empty".
const (
	UnknownTitle       = "未知标题"
	UnknownAuthor      = "未知作者"
	UnknownPublishedAt = "未知"
	UnknownBody        = "未能获取内容"
	UnknownUsername    = "未知用户"
	UnknownComment     = "未知内容"
	UnknownCommentTime = "未知时间"
)

// NoteSummary is one search hit.
type NoteSummary struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NoteRecord is the structured result of scraping a note detail page.
type NoteRecord struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`

	// BodyMarkdown is the body element rendered as Markdown. Empty when the
	// body came from a text-only strategy or was not found.
	BodyMarkdown string `json:"body_markdown,omitempty"`

	// Tags behaves as a set; order is first-seen.
	Tags []string `json:"tags"`

	Comments []CommentRecord `json:"comments"`
}

// CommentRecord is a single comment in DOM encounter order.
type CommentRecord struct {
	Username string `json:"username"`
	Body     string `json:"body"`
	PostedAt string `json:"posted_at"`
}
