package extract

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/cleaner"
	"github.com/use-agent/rednote/models"
	"gopkg.in/yaml.v3"
)

// CommentSpec locates comment containers and the fields inside each one.
type CommentSpec struct {
	Containers []browser.Locator `yaml:"containers"`
	Username   Field             `yaml:"username"`
	Body       Field             `yaml:"body"`
	Time       Field             `yaml:"time"`

	// ProfileLinks are tried page-wide when no container yields a comment.
	ProfileLinks []browser.Locator `yaml:"profile_links"`
}

// Table is the complete selector strategy table. Every selector the
// scraper uses lives here, so a site redesign is a data change.
type Table struct {
	Title       Field `yaml:"title"`
	Author      Field `yaml:"author"`
	PublishedAt Field `yaml:"published_at"`
	Body        Field `yaml:"body"`
	Tags        Field `yaml:"tags"`

	// CommentRegions are tagged with CommentAttr before body extraction.
	CommentRegions []string `yaml:"comment_regions"`

	Cards          []browser.Locator `yaml:"cards"`
	CardLink       Field             `yaml:"card_link"`
	CardTitle      Field             `yaml:"card_title"`
	CrawlCardTitle Field             `yaml:"crawl_card_title"`

	Comments       CommentSpec       `yaml:"comments"`
	CommentAnchors []browser.Locator `yaml:"comment_anchors"`
	MoreComments   []browser.Locator `yaml:"more_comments"`

	LoginAffordance []browser.Locator `yaml:"login_affordance"`
	CommentInputs   []browser.Locator `yaml:"comment_inputs"`
	SendButtons     []browser.Locator `yaml:"send_buttons"`
	Images          []browser.Locator `yaml:"images"`
	CloseButtons    []browser.Locator `yaml:"close_buttons"`
}

func css(sel string) Strategy { return Strategy{Locator: browser.CSS(sel)} }

func cssMin(sel string, n int) Strategy {
	return Strategy{Locator: browser.CSS(sel), MinRunes: n}
}

func locators(sels ...string) []browser.Locator {
	out := make([]browser.Locator, len(sels))
	for i, s := range sels {
		out[i] = browser.CSS(s)
	}
	return out
}

// Default returns the built-in table for the current site markup.
func Default() *Table {
	return &Table{
		Title: Field{
			Name:    "title",
			Unknown: models.UnknownTitle,
			Strategies: []Strategy{
				css("#detail-title"),
				css("div.title"),
				css("h1"),
				css("div.note-content div.title"),
			},
		},
		Author: Field{
			Name:    "author",
			Unknown: models.UnknownAuthor,
			Strategies: []Strategy{
				css("span.username"),
				css("a.name"),
				css(".author-wrapper .username"),
				css(".info .name"),
			},
		},
		PublishedAt: Field{
			Name:    "published_at",
			Unknown: models.UnknownPublishedAt,
			Strategies: []Strategy{
				css("span.date"),
				css(".bottom-container .date"),
				css(".date"),
				{
					Name:    "date-pattern",
					Kind:    KindPattern,
					Locator: browser.CSS("body"),
					Patterns: []string{
						`编辑于\s*[\d-]+`,
						`\d{4}-\d{2}-\d{2}`,
						`\d{2}-\d{2}`,
						`\d+月\d+日`,
						`\d+天前`,
						`\d+小时前`,
						`今天`,
						`昨天`,
					},
				},
			},
		},
		Body: Field{
			Name:    "body",
			Unknown: models.UnknownBody,
			Strategies: []Strategy{
				{Locator: browser.CSS("#detail-desc .note-text"), MinRunes: 51, SkipComments: true},
				{Locator: browser.CSS("div#detail-desc > span.note-text"), MinRunes: 21, SkipComments: true},
				{
					Name:         "longest-content-block",
					Locator:      browser.CSS("div#detail-desc, div.note-content, div.desc, span.note-text"),
					Pick:         PickLongest,
					MinRunes:     101,
					MaxRunes:     9999,
					SkipComments: true,
				},
				{Locator: browser.CSS(".note-content .note-text"), MinRunes: 51, SkipComments: true},
				{Locator: browser.CSS("div.note-content"), MinRunes: 51, SkipComments: true},
				{
					Name:         "joined-paragraphs",
					Locator:      browser.CSS("p"),
					Pick:         PickJoin,
					MinRunes:     11,
					JoinMinRunes: 51,
					SkipComments: true,
				},
				{Locator: browser.CSS("div.desc"), Pick: PickLongest, MinRunes: 101, SkipComments: true},
				{Kind: KindReadability, MinRunes: 101, SkipComments: true},
			},
		},
		Tags: Field{
			Name: "tags",
			Strategies: []Strategy{
				{Locator: browser.CSS(".tag, .note-tag, .tag-item"), Pick: PickAll},
			},
		},
		CommentRegions: []string{
			".comments-container",
			".comment-list",
			".feed-comment",
			"div[data-v-aed4aacc]",
			".content span.note-text",
			".comment-item",
		},
		Cards: locators("section.note-item", "div[data-v-a264b01a]"),
		CardLink: Field{
			Name:       "card_link",
			Strategies: []Strategy{{Locator: browser.CSS(`a[href*="/explore/"]`), Attr: "href"}},
		},
		CardTitle: Field{
			Name:       "card_title",
			Unknown:    models.UnknownTitle,
			Strategies: []Strategy{css("a.title span")},
		},
		CrawlCardTitle: Field{
			Name: "crawl_card_title",
			Strategies: []Strategy{
				css("a.title span"),
				css(".title"),
				css("h3"),
				css("h2"),
			},
		},
		Comments: CommentSpec{
			Containers: locators(
				"div.comment-item",
				"div.commentItem",
				"div.comment-content",
				"div.comment-wrapper",
				"section.comment",
				"div.feed-comment",
			),
			Username: Field{
				Name:    "comment_username",
				Unknown: models.UnknownUsername,
				Strategies: []Strategy{
					css("span.user-name"),
					css("a.name"),
					css("div.username"),
					css("span.nickname"),
					css("a.user-nickname"),
					css(`a[href*="/user/profile/"]`),
				},
			},
			Body: Field{
				Name:    "comment_body",
				Unknown: models.UnknownComment,
				Strategies: []Strategy{
					cssMin("div.content", 3),
					cssMin("p.content", 3),
					cssMin("div.text", 3),
					cssMin("span.content", 3),
					cssMin("div.comment-text", 3),
				},
			},
			Time: Field{
				Name:    "comment_time",
				Unknown: models.UnknownCommentTime,
				Strategies: []Strategy{
					css("span.time"),
					css("div.time"),
					css("span.date"),
					css("div.date"),
					css("time"),
				},
			},
			ProfileLinks: locators(`a[href*="/user/profile/"]`),
		},
		CommentAnchors: []browser.Locator{
			browser.HasText("*", "条评论"),
			browser.HasText("*", "评论"),
			browser.CSS("div.comment-container"),
		},
		MoreComments: []browser.Locator{
			browser.HasText("*", "查看更多评论"),
			browser.HasText("*", "展开更多评论"),
			browser.HasText("*", "加载更多"),
			browser.HasText("*", "查看全部"),
		},
		LoginAffordance: []browser.Locator{browser.ExactText("*", "登录")},
		CommentInputs: []browser.Locator{
			browser.CSS(`div[contenteditable="true"]`),
			browser.HasText("*", "说点什么..."),
			browser.HasText("*", "评论发布后所有人都能看到"),
		},
		SendButtons: []browser.Locator{browser.HasText("button", "发送")},
		Images: locators(
			".swiper-slide-active img",
			".note-image img",
			".image-container img",
			".note-detail img",
			"img",
		),
		CloseButtons: locators(
			`button[aria-label="关闭"]`,
			".close",
			".icon-close",
			".modal-close",
			".note-dialog-close",
			".red-close",
			".close-btn",
		),
	}
}

// LoadTable returns the default table with any field named in the YAML
// file at path replaced by the file's version. An empty path yields the
// defaults. The merged table is validated.
func LoadTable(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector table: %w", err)
	}
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("parse selector table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("selector table %s: %w", path, err)
	}
	return t, nil
}

// Validate checks every selector and pattern in the table.
func (t *Table) Validate() error {
	var errs []error

	for _, f := range []Field{
		t.Title, t.Author, t.PublishedAt, t.Body, t.Tags,
		t.CardLink, t.CardTitle, t.CrawlCardTitle,
		t.Comments.Username, t.Comments.Body, t.Comments.Time,
	} {
		errs = append(errs, validateField(f)...)
	}

	for _, sel := range t.CommentRegions {
		if err := cleaner.ValidateSelector(sel); err != nil {
			errs = append(errs, fmt.Errorf("comment_regions: %w", err))
		}
	}

	groups := map[string][]browser.Locator{
		"cards":                  t.Cards,
		"comments.containers":    t.Comments.Containers,
		"comments.profile_links": t.Comments.ProfileLinks,
		"comment_anchors":        t.CommentAnchors,
		"more_comments":          t.MoreComments,
		"login_affordance":       t.LoginAffordance,
		"comment_inputs":         t.CommentInputs,
		"send_buttons":           t.SendButtons,
		"images":                 t.Images,
		"close_buttons":          t.CloseButtons,
	}
	for name, locs := range groups {
		if len(locs) == 0 {
			errs = append(errs, fmt.Errorf("%s: no locators", name))
		}
		for _, loc := range locs {
			if err := cleaner.ValidateSelector(loc.CSS); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}

	return errors.Join(errs...)
}

func validateField(f Field) []error {
	var errs []error
	if len(f.Strategies) == 0 {
		errs = append(errs, fmt.Errorf("%s: no strategies", f.Name))
	}
	for i, s := range f.Strategies {
		switch s.kind() {
		case KindCSS, KindPattern:
			if err := cleaner.ValidateSelector(s.CSS); err != nil {
				errs = append(errs, fmt.Errorf("%s[%d]: %w", f.Name, i, err))
			}
		case KindReadability:
		default:
			errs = append(errs, fmt.Errorf("%s[%d]: unknown kind %q", f.Name, i, s.Kind))
		}
		switch s.pick() {
		case PickFirst, PickLongest, PickAll, PickJoin:
		default:
			errs = append(errs, fmt.Errorf("%s[%d]: unknown pick %q", f.Name, i, s.Pick))
		}
		if s.kind() == KindPattern && len(s.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("%s[%d]: pattern strategy without patterns", f.Name, i))
		}
		for _, p := range s.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Errorf("%s[%d]: %w", f.Name, i, err))
			}
		}
		if s.JoinMinRunes > 0 && s.pick() != PickJoin {
			errs = append(errs, fmt.Errorf("%s[%d]: join_min_runes without pick join", f.Name, i))
		}
		if s.MaxRunes > 0 && s.MaxRunes < s.MinRunes {
			errs = append(errs, fmt.Errorf("%s[%d]: max_runes below min_runes", f.Name, i))
		}
	}
	return errs
}
