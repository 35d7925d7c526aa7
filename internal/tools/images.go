package tools

import (
	"fmt"
	"regexp"
)

// DefaultVisualPatterns 用户想“看”东西的说法
var DefaultVisualPatterns = []string{
	`(?i)\bwhat\s+(?:does|do|did)\b.*\blooks?\s+like\b`,
	`(?i)\bshow\s+me\b`,
	`(?i)\b(?:pictures?|photos?|images?|pics)\s+of\b`,
	`(?i)\b(?:artwork|paintings?|architecture|fashion|landmarks?|scenery)\b`,
}

// DefaultNonVisualPatterns 数据密集型领域，即使搜索返回了图片也不展示
var DefaultNonVisualPatterns = []string{
	// 金融
	`(?i)\b(?:stocks?|shares?|price|market\s*cap|ticker|earnings|revenue|dividends?|nasdaq|dow|s&p|crypto|bitcoin|portfolio|ETFs?)\b`,
	// 天气
	`(?i)\b(?:weather|forecast|temperature|rain|humidity)\b`,
	// 编程
	`(?i)\b(?:code|coding|programming|function|python|javascript|typescript|golang|java|sql|api|debug|compile)\b`,
	// 操作指南
	`(?i)\b(?:how\s+(?:to|do\s+i|can\s+i)|step.?by.?step|tutorial|install|configure)\b`,
}

// ImagePolicy 决定搜索图片是否附加到响应
type ImagePolicy struct {
	visual    []*regexp.Regexp
	nonVisual []*regexp.Regexp
}

// NewImagePolicy 空列表使用默认规则
func NewImagePolicy(visual, nonVisual []string) (*ImagePolicy, error) {
	if len(visual) == 0 {
		visual = DefaultVisualPatterns
	}
	if len(nonVisual) == 0 {
		nonVisual = DefaultNonVisualPatterns
	}
	p := &ImagePolicy{}
	var err error
	if p.visual, err = compileAll(visual); err != nil {
		return nil, fmt.Errorf("visual patterns: %w", err)
	}
	if p.nonVisual, err = compileAll(nonVisual); err != nil {
		return nil, fmt.Errorf("non-visual patterns: %w", err)
	}
	return p, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ShowImages 视觉类查询且不属于非视觉领域
func (p *ImagePolicy) ShowImages(message string) bool {
	return matchAny(p.visual, message) && !matchAny(p.nonVisual, message)
}
