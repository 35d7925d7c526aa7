// Package provider LLM 供应商：懒加载客户端、模型族参数、错误到 alert 的映射与拒答重试。
package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/model"
	"a2ui-backend/pkg/logger"
)

// ModelInfo /api/providers 中的模型条目
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Info /api/providers 的响应条目
type Info struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Models []ModelInfo `json:"models"`
}

// Factory 创建底层对话模型，成功一次后不再调用
type Factory func(ctx context.Context) (einoModel.BaseChatModel, error)

// Spec 构造 Provider 所需的静态描述
type Spec struct {
	ID            string
	Name          string
	Models        []ModelInfo
	APIKey        string
	CredentialEnv string
	Factory       Factory
	Quirks        Quirks
}

// Provider 单个 LLM 供应商；客户端懒加载，创建失败时下次使用重试
type Provider struct {
	id            string
	name          string
	models        []ModelInfo
	apiKey        string
	credentialEnv string
	factory       Factory
	quirks        Quirks

	mu     sync.Mutex
	client einoModel.BaseChatModel
}

func New(spec Spec) *Provider {
	quirks := spec.Quirks
	if quirks == nil {
		quirks = PlainText
	}
	return &Provider{
		id:            spec.ID,
		name:          spec.Name,
		models:        spec.Models,
		apiKey:        spec.APIKey,
		credentialEnv: spec.CredentialEnv,
		factory:       spec.Factory,
		quirks:        quirks,
	}
}

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Name() string { return p.name }

func (p *Provider) Models() []ModelInfo {
	return append([]ModelInfo(nil), p.models...)
}

// HasModel 模型是否在目录中；未声明目录的供应商接受任意模型
func (p *Provider) HasModel(id string) bool {
	if len(p.models) == 0 {
		return true
	}
	for _, m := range p.models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Available 是否配置了凭证
func (p *Provider) Available() bool {
	return strings.TrimSpace(p.apiKey) != "" && p.factory != nil
}

func (p *Provider) Info() Info {
	return Info{ID: p.id, Name: p.name, Models: p.Models()}
}

func (p *Provider) chatModel(ctx context.Context) (einoModel.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	client, err := p.factory(ctx)
	if err != nil {
		logger.Errorf("创建 %s 客户端失败: %v", p.id, err)
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *Provider) callOptions(modelID string, override *model.CallOptions) []einoModel.Option {
	call := p.quirks(modelID)
	if override != nil {
		call = *override
	}
	opts := []einoModel.Option{
		einoModel.WithModel(modelID),
		einoModel.WithMaxTokens(call.MaxTokens),
		model.WithCallOptions(call),
	}
	if call.Temperature != nil {
		opts = append(opts, einoModel.WithTemperature(*call.Temperature))
	}
	return opts
}

// Complete 返回原始补全文本；供分析器等需要非 A2UI 输出的调用方使用
func (p *Provider) Complete(ctx context.Context, modelID string, messages []*schema.Message, override *model.CallOptions) (string, error) {
	cm, err := p.chatModel(ctx)
	if err != nil {
		return "", err
	}
	msg, err := cm.Generate(ctx, messages, p.callOptions(modelID, override)...)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		finish := ""
		if msg.ResponseMeta != nil {
			finish = msg.ResponseMeta.FinishReason
		}
		return "", &Error{Kind: KindEmpty, Message: "empty completion (finish_reason: " + finish + ")"}
	}
	return content, nil
}

// Request 一次生成调用的输入；History 应已按预算裁剪
type Request struct {
	Message      string
	Model        string
	History      []model.ChatTurn
	SystemPrompt string
}

// Outcome 生成结果；运行时错误已被转换为 alert 负载
type Outcome struct {
	Payload map[string]any
	// ErrorKind 为空表示上游调用成功
	ErrorKind Kind
	Retried   bool
	Duration  time.Duration
}

func buildMessages(req Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	}
	for _, turn := range req.History {
		if turn.Role == "assistant" {
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(turn.Content))
		}
	}
	return append(msgs, schema.UserMessage(req.Message))
}

// generateOnce 单次调用：错误映射为 alert，解析失败走兜底
func (p *Provider) generateOnce(ctx context.Context, req Request) (map[string]any, Kind) {
	log := logger.WithFields(logger.Fields{"provider": p.id, "model": req.Model})

	content, err := p.Complete(ctx, req.Model, buildMessages(req), nil)
	if err != nil {
		pe := Classify(err)
		if pe.Kind.Transient() {
			log.Warnf("上游调用失败 (%s): %v", pe.Kind, err)
		} else {
			log.Errorf("上游调用失败 (%s): %v", pe.Kind, err)
		}
		return pe.Alert(p, req.Model), pe.Kind
	}

	log.Debugf("原始输出（前 500 字符）: %.500s", content)
	return safetyNet(a2ui.Extract(content), content), ""
}

// safetyNet 解析结果既无 text 也无组件时，直接展示原文
func safetyNet(parsed map[string]any, raw string) map[string]any {
	text, _ := parsed["text"].(string)
	doc, _ := parsed["a2ui"].(map[string]any)
	components, _ := doc["components"].([]any)
	if text != "" || len(components) > 0 {
		return parsed
	}

	logger.Warnf("解析结果缺少 text 与组件，原文: %.300s", raw)
	shown := "The AI response could not be parsed. Please try again."
	if len([]rune(raw)) > 20 {
		shown = truncateRunes(raw, 1000)
	}
	out := a2ui.AlertResponse("parse-warn", "Response Format Issue",
		"The AI response didn't match the expected format. Showing raw output.", a2ui.VariantWarning)
	out["text"] = shown
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Generate 生成一次回答；检测到拒答时不带历史重试一次
func (p *Provider) Generate(ctx context.Context, req Request, detector *a2ui.RefusalDetector) *Outcome {
	start := time.Now()
	payload, kind := p.generateOnce(ctx, req)
	out := &Outcome{Payload: payload, ErrorKind: kind}

	if kind == "" && detector != nil && detector.IsRefusal(payload) {
		logger.Infof("检测到拒答，使用覆盖指令重试 (%s/%s)", p.id, req.Model)
		retry := Request{
			Message:      a2ui.RefusalNudge + req.Message,
			Model:        req.Model,
			SystemPrompt: req.SystemPrompt,
		}
		out.Payload, out.ErrorKind = p.generateOnce(ctx, retry)
		out.Retried = true
	}

	out.Duration = time.Since(start)
	return out
}

// Registry 有序的供应商集合，启动后只读
type Registry struct {
	providers map[string]*Provider
	order     []string
	detector  *a2ui.RefusalDetector
}

func NewRegistry(detector *a2ui.RefusalDetector, providers ...*Provider) *Registry {
	r := &Registry{providers: make(map[string]*Provider, len(providers)), detector: detector}
	for _, p := range providers {
		if _, dup := r.providers[p.id]; dup {
			logger.Warnf("重复的供应商 %s，忽略", p.id)
			continue
		}
		r.providers[p.id] = p
		r.order = append(r.order, p.id)
	}
	return r
}

// Get 只返回已配置凭证的供应商
func (r *Registry) Get(id string) (*Provider, bool) {
	p, ok := r.providers[id]
	if !ok || !p.Available() {
		return nil, false
	}
	return p, true
}

// Available 已配置凭证的供应商，按注册顺序
func (r *Registry) Available() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		if p := r.providers[id]; p.Available() {
			out = append(out, p.Info())
		}
	}
	return out
}

// Generate 未知或不可用的供应商属于调用方错误，其余错误都在负载中体现
func (r *Registry) Generate(ctx context.Context, providerID string, req Request) (*Outcome, error) {
	p, ok := r.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("provider %q is not available", providerID)
	}
	return p.Generate(ctx, req, r.detector), nil
}

// CallOptionsFor 模型族默认参数，调用方可在此基础上调整后传给 Complete
func (p *Provider) CallOptionsFor(modelID string) model.CallOptions {
	return p.quirks(modelID)
}
