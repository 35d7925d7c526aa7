// Package history 按字节预算裁剪对话历史。
package history

import (
	"a2ui-backend/internal/model"
	"a2ui-backend/pkg/logger"
)

// Unbounded 表示没有请求体上限
const Unbounded = 0

// Trim 从最新一轮往前累计 UTF-8 字节数，遇到第一条放不下的消息即停止。
// 返回新的切片，保留的一定是原历史按时间顺序的一个后缀；调用方的切片不会被修改。
func Trim(turns []model.ChatTurn, reservedSystem, reservedMessage, maxBodyBytes int) []model.ChatTurn {
	if len(turns) == 0 {
		return nil
	}
	if maxBodyBytes <= Unbounded {
		out := make([]model.ChatTurn, len(turns))
		copy(out, turns)
		return out
	}

	budget := maxBodyBytes - reservedSystem - reservedMessage
	if budget < 0 {
		budget = 0
	}

	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		size := len(turns[i].Content)
		if size > budget {
			break
		}
		budget -= size
		start = i
	}

	kept := make([]model.ChatTurn, len(turns)-start)
	copy(kept, turns[start:])

	if len(kept) < len(turns) {
		logger.Infof("历史已裁剪: %d → %d 轮，预算 %d 字节", len(turns), len(kept), maxBodyBytes)
	}
	return kept
}
