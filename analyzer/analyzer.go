// Package analyzer classifies a scraped note into topic domains and
// prepares the comment-writing brief handed to the MCP client.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/use-agent/rednote/models"
)

// DefaultDomain is reported when no domain keyword matches.
const DefaultDomain = "生活"

const maxKeywords = 20

// Domain is a topic with the keywords that signal it.
type Domain struct {
	Name     string
	Keywords []string
}

// Domains is the ordered domain table.
var Domains = []Domain{
	{Name: "美妆", Keywords: []string{"口红", "粉底", "眼影", "护肤", "美妆", "化妆", "保湿", "精华", "面膜"}},
	{Name: "穿搭", Keywords: []string{"穿搭", "衣服", "搭配", "时尚", "风格", "单品", "衣橱", "潮流"}},
	{Name: "美食", Keywords: []string{"美食", "好吃", "食谱", "餐厅", "小吃", "甜点", "烘焙", "菜谱"}},
	{Name: "旅行", Keywords: []string{"旅行", "旅游", "景点", "出行", "攻略", "打卡", "度假", "酒店"}},
	{Name: "母婴", Keywords: []string{"宝宝", "母婴", "育儿", "儿童", "婴儿", "辅食", "玩具"}},
	{Name: "数码", Keywords: []string{"数码", "手机", "电脑", "相机", "智能", "设备", "科技"}},
	{Name: "家居", Keywords: []string{"家居", "装修", "家具", "设计", "收纳", "布置", "家装"}},
	{Name: "健身", Keywords: []string{"健身", "运动", "瘦身", "减肥", "训练", "塑形", "肌肉"}},
	{Name: "AI", Keywords: []string{"AI", "人工智能", "大模型", "编程", "开发", "技术", "Claude", "GPT"}},
}

var wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Analyze classifies rec. Domain matching is a case-insensitive substring
// test over title and body; keywords are the first 20 distinct word runs.
func Analyze(rec models.NoteRecord) models.NoteAnalysis {
	title := strings.ToLower(rec.Title)
	body := strings.ToLower(rec.Body)

	var domains []string
	for _, d := range Domains {
		for _, k := range d.Keywords {
			k = strings.ToLower(k)
			if strings.Contains(title, k) || strings.Contains(body, k) {
				domains = append(domains, d.Name)
				break
			}
		}
	}
	if len(domains) == 0 {
		domains = []string{DefaultDomain}
	}

	return models.NoteAnalysis{
		URL:      rec.URL,
		Title:    rec.Title,
		Author:   rec.Author,
		Body:     rec.Body,
		Domains:  domains,
		Keywords: keywords(rec.Title + " " + rec.Body),
	}
}

func keywords(text string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, w := range wordRun.FindAllString(text, -1) {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
