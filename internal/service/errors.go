package service

import (
	"errors"
	"net/http"
)

// ErrInvalidRequest 所有调用方错误都可以用 errors.Is 匹配到它
var ErrInvalidRequest = errors.New("invalid request")

// RequestError 在任何外部调用之前拒绝的请求
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func badRequest(msg string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: msg}
}
