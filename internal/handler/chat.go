package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"a2ui-backend/internal/model"
	"a2ui-backend/internal/service"
	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

const (
	heartbeatInterval = 15 * time.Second
	genericFailure    = "Something went wrong generating a response. Please try again."
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Chat POST /api/chat；Accept 含 text/event-stream 时走 SSE，否则返回完整 JSON
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if !h.bind(c, &req) {
		return
	}

	log := logger.WithFields(logger.Fields{
		"request_id": c.GetString(requestIDKey),
		"provider":   req.Provider,
		"model":      req.Model,
	})

	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		h.stream(c, &req)
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		var reqErr *service.RequestError
		if errors.As(err, &reqErr) {
			c.JSON(reqErr.Status, gin.H{"error": reqErr.Message})
			return
		}
		log.Errorf("生成失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"text": genericFailure, "_error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bind 解析请求体；校验失败时优先返回业务层的错误文案
func (h *ChatHandler) bind(c *gin.Context, req *model.ChatRequest) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return false
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var reqErr *service.RequestError
		if errors.As(h.chatService.Validate(req), &reqErr) {
			c.JSON(reqErr.Status, gin.H{"error": reqErr.Message})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error()})
		return false
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

func (h *ChatHandler) stream(c *gin.Context, req *model.ChatRequest) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.chatService.StreamChat(ctx, req)
	if err != nil {
		var reqErr *service.RequestError
		if errors.As(err, &reqErr) {
			c.JSON(reqErr.Status, gin.H{"error": reqErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}

	sseWriter := utils.NewSSEWriter(c.Writer)
	c.Status(http.StatusOK)

	// 心跳防止代理因空闲断开连接
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sseWriter.WriteEvent(ev.Type, ev.Payload()); err != nil {
				logger.Warnf("SSE 写入失败，停止推送: %v", err)
				return
			}
		case <-heartbeat.C:
			if err := sseWriter.Comment("keep-alive"); err != nil {
				logger.Warnf("心跳发送失败: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
