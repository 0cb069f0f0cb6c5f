package services

import (
	"fmt"
	"strings"

	"github.com/vibin/jx3-item-bot/internal/core/domain"
)

const (
	unknownName     = "未知名称"
	noDescription   = "暂无描述"
	noDetailLink    = "无详细链接"
	internalErrText = "查询物品时发生内部错误，请联系管理员。"
)

// ReplyFormatter renders search outcomes as chat text
type ReplyFormatter struct {
	detailBaseURL string
	usageExample  string
}

// NewReplyFormatter creates a formatter building links from detailBaseURL.
// primaryTrigger is used in the usage hint example.
func NewReplyFormatter(detailBaseURL, primaryTrigger string) *ReplyFormatter {
	return &ReplyFormatter{
		detailBaseURL: detailBaseURL,
		usageExample:  fmt.Sprintf("/%s 沧海间", primaryTrigger),
	}
}

// UsageHint is the reply for a bare trigger phrase
func (f *ReplyFormatter) UsageHint() string {
	return "请提供您要查询的物品名称。例如：" + f.usageExample
}

// FormatOutcome maps every outcome kind to its reply text
func (f *ReplyFormatter) FormatOutcome(term string, outcome domain.SearchOutcome) string {
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		return f.FormatItems(term, outcome.Items)
	case domain.OutcomeAPIError:
		return fmt.Sprintf("查询失败或API返回异常：%s", outcome.Message)
	case domain.OutcomeNetworkError:
		return fmt.Sprintf("查询物品时发生网络错误，请稍后再试。错误信息: %s", outcome.Detail())
	default:
		return internalErrText
	}
}

// FormatItems renders the found items, or a not-found sentence
func (f *ReplyFormatter) FormatItems(term string, items []domain.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("未找到与 '%s' 相关的物品。", term)
	}

	blocks := make([]string, 0, len(items)+1)
	blocks = append(blocks, fmt.Sprintf("为您找到以下与 '%s' 相关的物品：", term))
	for _, item := range items {
		blocks = append(blocks, f.formatItem(item))
	}
	return strings.Join(blocks, "\n\n")
}

func (f *ReplyFormatter) formatItem(item domain.Item) string {
	name := item.Name
	if strings.TrimSpace(name) == "" {
		name = unknownName
	}

	desc := item.Description
	if strings.TrimSpace(desc) == "" {
		desc = noDescription
	}

	return fmt.Sprintf("名称: %s\n描述: %s\n详情: %s", name, desc, f.DetailLink(item.ID))
}

// DetailLink builds the item page URL, or a placeholder without an id
func (f *ReplyFormatter) DetailLink(id domain.ItemID) string {
	if !id.Valid() {
		return noDetailLink
	}
	return f.detailBaseURL + string(id)
}
