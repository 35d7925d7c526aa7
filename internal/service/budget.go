package service

import (
	"a2ui-backend/internal/model"
	"a2ui-backend/pkg/logger"
)

const (
	BudgetHeadroom  = "headroom"
	BudgetDowngrade = "downgrade"
)

// fitBudget 系统提示词超过剩余预算的固定比例时：headroom 模式有限度地抬高上限，downgrade 模式换用更小的风格
func (s *ChatService) fitBudget(style, rules string, messageBytes int) (string, string, int, *model.BudgetDiagnostics) {
	maxBody := s.cfg.MaxBodyBytes
	diag := &model.BudgetDiagnostics{MaxBodyBytes: maxBody, EffectiveBodyBytes: maxBody}
	system := s.systemPrompt(style, rules)

	remaining := maxBody - messageBytes
	if remaining < 0 {
		remaining = 0
	}
	limit := int(float64(remaining) * s.cfg.PromptBudgetFraction)
	if len(system) <= limit {
		return style, system, maxBody, diag
	}

	if s.cfg.BudgetMode == BudgetDowngrade {
		ids := s.styles.BySize()
		chosen := ids[0]
		for _, id := range ids {
			if len(s.systemPrompt(id, rules)) <= limit {
				chosen = id
			}
		}
		if chosen != style {
			logger.Infof("提示词 %d 字节超出预算 %d，风格 %s 降级为 %s", len(system), limit, style, chosen)
			diag.Action = BudgetDowngrade
			diag.FromStyle = style
			return chosen, s.systemPrompt(chosen, rules), maxBody, diag
		}
		return style, system, maxBody, diag
	}

	headroom := s.cfg.HeadroomBytes
	if need := len(system) - limit; need < headroom {
		headroom = need
	}
	diag.Action = BudgetHeadroom
	diag.EffectiveBodyBytes = maxBody + headroom
	logger.Infof("提示词 %d 字节超出预算 %d，上限提高 %d 字节", len(system), limit, headroom)
	return style, system, diag.EffectiveBodyBytes, diag
}
