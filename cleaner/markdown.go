// Package cleaner turns scraped note markup into text and Markdown.
package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown converts note body fragments to Markdown. Relative links and
// image sources resolve against the site origin. It is safe for concurrent use.
type Markdown struct {
	conv   *converter.Converter
	origin string
}

func NewMarkdown(origin string) *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
		origin: origin,
	}
}

// Convert renders fragment as Markdown. An empty fragment yields "".
func (m *Markdown) Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	out, err := m.conv.ConvertString(fragment, converter.WithDomain(m.origin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
