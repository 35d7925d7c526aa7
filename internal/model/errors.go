package model

import (
	"errors"
	"fmt"
)

// ErrNoChoices 上游返回了空的候选列表
var ErrNoChoices = errors.New("upstream returned no choices")

// StatusError HTTP 适配器的非 2xx 响应
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Code, e.Message)
}

func (e *StatusError) HTTPStatus() int {
	return e.Code
}
