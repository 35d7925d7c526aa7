package styles

import (
	"regexp"
	"strings"
)

// Rule 有序规则表中的一项：先匹配者胜出
type Rule struct {
	Pattern *regexp.Regexp
	Style   string
}

// ClassificationRules 从最具体到最宽泛
var ClassificationRules = []Rule{
	// 金融 / 分析信号
	{regexp.MustCompile(`(?i)\b(?:stocks?|ticker|share\s*price|market\s*cap|P/?E\s*ratio|earnings|` +
		`revenue|dividends?|EPS|52.?w(?:ee)?k|nasdaq|dow\s*jones|s&p\s*500|` +
		`bull(?:ish)?|bear(?:ish)?|portfolio|IPO|ETFs?|mutual\s*funds?|bond\s*yields?)\b`), "analytical"},
	// 常见股票代码，大小写敏感
	{regexp.MustCompile(`\b(?:NVDA|AAPL|GOOGL?|MSFT|AMZN|TSLA|META|AMD|INTC|QCOM|` +
		`NFLX|BA|JPM|WMT|DIS|V|MA|UNH|JNJ|PG|HD|COST|CRM|AVGO|MU)\b`), "analytical"},
	{regexp.MustCompile(`\$[\d,.]+[BMTKbmtk]?`), "analytical"},
	{regexp.MustCompile(`(?i)\b(?:forecast|GDP|inflation|interest\s*rate|unemployment|economic` +
		`|recession|deficit|trade\s*balance)\b`), "analytical"},
	{regexp.MustCompile(`(?i)\b(?:KPI|dashboard|metric|analytics)\b`), "analytical"},
	{regexp.MustCompile(`(?i)\b(?:top\s+\d+|best\s+\d+|largest|biggest|highest|ranking)\b` +
		`.*\b(?:stocks?|compan|funds?|ETFs?|banks?|tech|startups?|crypt)`), "analytical"},

	// 对比
	{regexp.MustCompile(`(?i)\b(?:vs\.?|versus)\b`), "comparison"},
	{regexp.MustCompile(`(?i)\b(?:compare|comparison|which\s+is\s+better|pros?\s+(?:and|&)\s+cons?` +
		`|differences?\s+between|head\s*to\s*head)\b`), "comparison"},

	// 操作指南
	{regexp.MustCompile(`(?i)\b(?:how\s+(?:to|do\s+I|can\s+I)|step.?by.?step|guide\s+to|tutorial` +
		`|recipe|instructions?\s+(?:for|to)|set\s*up|install|configure|troubleshoot)\b`), "howto"},

	// 知识类
	{regexp.MustCompile(`(?i)\b(?:what\s+(?:is|are|was|were|does?|do)|who\s+(?:is|are|was|were)` +
		`|explain|history\s+of|define|meaning\s+of|overview\s+of` +
		`|tell\s+me\s+about|describe|look\s+like|looks?\s+like` +
		`|why\s+(?:is|are|do|does|did))\b`), "content"},

	// 非金融排行
	{regexp.MustCompile(`(?i)\b(?:top\s+\d+|best\s+\d+)\b`), "content"},
}

// QuickWordLimit 未命中任何规则时，不超过该词数的问题归为 quick
const QuickWordLimit = 4

// Classify 规则分类；matched 表示是否命中了显式规则
func Classify(message string) (style string, matched bool) {
	msg := strings.TrimSpace(message)
	for _, rule := range ClassificationRules {
		if rule.Pattern.MatchString(msg) {
			return rule.Style, true
		}
	}
	if len(strings.Fields(msg)) <= QuickWordLimit {
		return "quick", false
	}
	return DefaultStyle, false
}
