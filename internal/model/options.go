package model

import (
	einoModel "github.com/cloudwego/eino/components/model"
)

// DefaultMaxTokens 单次生成的输出上限
const DefaultMaxTokens = 4000

// CallOptions 各适配器共用的调用参数，由模型族规则决定
type CallOptions struct {
	MaxTokens int
	// UseMaxCompletionTokens 推理类模型使用 max_completion_tokens
	UseMaxCompletionTokens bool
	// Temperature 为 nil 时不发送
	Temperature *float32
	JSONMode    bool
}

func WithCallOptions(o CallOptions) einoModel.Option {
	return einoModel.WrapImplSpecificOptFn(func(c *CallOptions) {
		*c = o
	})
}

// resolveOptions 合并通用参数与适配器参数；通用参数中的模型名优先于默认模型
func resolveOptions(defaultModel string, opts []einoModel.Option) (string, *CallOptions) {
	common := einoModel.GetCommonOptions(&einoModel.Options{}, opts...)
	call := einoModel.GetImplSpecificOptions(&CallOptions{MaxTokens: DefaultMaxTokens}, opts...)

	if common.MaxTokens != nil {
		call.MaxTokens = *common.MaxTokens
	}
	if call.MaxTokens <= 0 {
		call.MaxTokens = DefaultMaxTokens
	}
	if common.Temperature != nil {
		call.Temperature = common.Temperature
	}
	model := defaultModel
	if common.Model != nil && *common.Model != "" {
		model = *common.Model
	}
	return model, call
}
