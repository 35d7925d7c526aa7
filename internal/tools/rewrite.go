package tools

import (
	"regexp"
	"strings"
	"time"
)

// 口语化前缀，依次各去掉第一次出现
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(can you |could you |please |hey |hi |ok |okay |)`),
	regexp.MustCompile(`(?i)(show me |tell me |give me |find me |get me |look up |search for |search |display |pull up |let me see |i want to see |i want |i need )`),
	regexp.MustCompile(`(?i)(what is |what are |what's |whats )`),
}

var localIndicators = []string{
	"weather", "forecast", "temperature", "near me", "nearby",
	"local", "restaurant", "food", "store", "event", "concert",
	"traffic", "commute", "directions", "open now",
}

var timeIndicators = []string{
	"current", "latest", "today", "now", "recent", "this week",
	"this month", "this year", "trending", "popular", "new",
	"price", "stock", "dow", "nasdaq", "s&p", "bitcoin",
	"crypto", "market", "score", "standings", "news",
}

var weatherIndicators = []string{"weather", "forecast", "temperature"}

var searchIndicators = []string{
	// 时间
	"current", "latest", "today", "now", "recent", "right now",
	"this week", "this month", "this year", "yesterday",
	"these days", "nowadays", "trending", "popular",
	"getting noticed", "going viral", "buzzing",
	// 金融
	"price", "stock", "market", "trading", "index", "fund",
	"dow", "djia", "nasdaq", "s&p", "sp500", "s&p500",
	"nyse", "russell", "ftse", "nikkei", "hang seng",
	"bitcoin", "btc", "eth", "ethereum", "crypto",
	"forex", "bond", "treasury", "yield", "earnings",
	"ipo", "dividend", "market cap",
	"ticker", "share", "shares",
	// 实时数据
	"weather", "forecast", "temperature",
	"news", "headlines", "breaking",
	"score", "game", "match", "standings",
	// 事实类提问
	"what is the", "how much", "who won", "who is",
	"where is", "when is", "is it",
	"compare", "vs", "versus",
	"result", "update", "status",
	// 视觉 / 发现
	"show me", "pictures of", "photos of", "images of",
	"what does", "look like", "artwork", "art",
	"design", "architecture", "fashion",
	"2024", "2025", "2026",
}

var multiSpace = regexp.MustCompile(`\s+`)

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ShouldSearch 子串启发式：消息是否需要实时信息
func ShouldSearch(message string) bool {
	return containsAny(strings.ToLower(message), searchIndicators)
}

// NeedsLocation 本地类查询（天气、附近、交通等）
func NeedsLocation(message string) bool {
	return containsAny(strings.ToLower(message), localIndicators)
}

func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// RewriteSearchQuery 将口语消息改写为搜索引擎查询
func RewriteSearchQuery(message, location string, now time.Time) string {
	msg := strings.TrimSpace(message)

	cleaned := msg
	for _, re := range fillerPatterns {
		cleaned = strings.TrimSpace(replaceFirst(re, cleaned))
	}
	if len(cleaned) < 3 {
		cleaned = msg
	}

	lower := strings.ToLower(cleaned)
	var parts []string
	if containsAny(lower, weatherIndicators) {
		parts = append(parts, "current "+cleaned)
		if location != "" {
			parts = append(parts, location)
		}
		parts = append(parts, "today")
	} else {
		parts = append(parts, cleaned)
		if location != "" && containsAny(lower, localIndicators) {
			parts = append(parts, location)
		}
		if containsAny(lower, timeIndicators) {
			parts = append(parts, now.Format("January 2006"))
		}
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(strings.Join(parts, " "), " "))
}
