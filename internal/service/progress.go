package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"a2ui-backend/internal/model"
)

// ProgressStep 单个管线步骤的最新状态
type ProgressStep struct {
	ID        string
	Label     string
	Detail    string
	Status    string
	Timestamp time.Time
	Emoji     string
}

// ProgressLog 累积式进度记录，按步骤 id 覆盖更新；供命令行输出进度摘要
type ProgressLog struct {
	steps       []ProgressStep
	isCompleted bool
	failed      bool
	mu          sync.RWMutex
}

func NewProgressLog() *ProgressLog {
	return &ProgressLog{steps: make([]ProgressStep, 0, 8)}
}

// Observe 处理一个流事件；终止事件会标记完成
func (p *ProgressLog) Observe(ev model.StreamEvent) {
	switch ev.Type {
	case model.EventStep:
		if ev.Step != nil {
			p.add(*ev.Step)
		}
	case model.EventComplete:
		p.markCompleted(false)
	case model.EventError:
		p.markCompleted(true)
	}
}

func (p *ProgressLog) add(step model.StepEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := ProgressStep{
		ID:        step.ID,
		Label:     step.Label,
		Detail:    step.Detail,
		Status:    step.Status,
		Timestamp: time.Now(),
		Emoji:     emojiFor(step.Status, step.ID),
	}

	// 同一步骤只保留最新状态
	for i, s := range p.steps {
		if s.ID == step.ID {
			p.steps[i] = entry
			return
		}
	}
	p.steps = append(p.steps, entry)
}

func emojiFor(status, id string) string {
	if status == model.StepDone {
		return "✅"
	}
	switch id {
	case stepTools:
		return "🔧"
	case stepAnalyze:
		return "🧭"
	case stepLocation:
		return "📍"
	case stepSearch:
		return "🔍"
	case stepDataSources:
		return "🗄️"
	case stepPrompt:
		return "📝"
	case stepGenerate:
		return "⚡"
	case stepPostprocess:
		return "📊"
	default:
		return "🔄"
	}
}

func (p *ProgressLog) markCompleted(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isCompleted = true
	p.failed = failed
}

func (p *ProgressLog) Steps() []ProgressStep {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ProgressStep(nil), p.steps...)
}

// Markdown 渲染进度列表
func (p *ProgressLog) Markdown() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var content strings.Builder
	switch {
	case p.isCompleted && p.failed:
		content.WriteString("## ❌ Failed\n\n")
	case p.isCompleted:
		content.WriteString("## ✅ Done\n\n")
	default:
		content.WriteString("## 🔄 Working...\n\n")
	}

	for _, step := range p.steps {
		if step.Detail != "" {
			content.WriteString(fmt.Sprintf("- %s **%s**: %s\n", step.Emoji, step.Label, step.Detail))
		} else {
			content.WriteString(fmt.Sprintf("- %s **%s**\n", step.Emoji, step.Label))
		}
	}
	return content.String()
}
