package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a2ui-backend/internal/model"
)

func stepEvent(id, status, detail string) model.StreamEvent {
	return model.StreamEvent{Type: model.EventStep, Step: &model.StepEvent{ID: id, Status: status, Label: stepLabels[id], Detail: detail}}
}

func TestProgressLog_UpsertsSteps(t *testing.T) {
	var p ProgressLog
	p.Observe(stepEvent(stepTools, model.StepStart, ""))
	p.Observe(stepEvent(stepAnalyze, model.StepStart, ""))
	p.Observe(stepEvent(stepTools, model.StepDone, ""))
	p.Observe(stepEvent(stepAnalyze, model.StepDone, "quick"))

	steps := p.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, stepTools, steps[0].ID)
	assert.Equal(t, "quick", steps[1].Detail)
	assert.Contains(t, p.Markdown(), "## 🔄 Working...")
}

func TestProgressLog_Terminal(t *testing.T) {
	var p ProgressLog
	p.Observe(stepEvent(stepGenerate, model.StepStart, ""))
	p.Observe(model.StreamEvent{Type: model.EventComplete, Response: &model.UIResponse{}})
	assert.Contains(t, p.Markdown(), "## ✅ Done")

	var failed ProgressLog
	failed.Observe(model.StreamEvent{Type: model.EventError, Error: "boom"})
	assert.Contains(t, failed.Markdown(), "## ❌ Failed")
}
