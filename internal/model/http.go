package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON 非 2xx 时返回 *StatusError，errMessage 负责从错误体中取出可读信息
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, in, out any, errMessage func([]byte) string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errMessage(respBody)
		if msg == "" {
			msg = string(respBody)
		}
		return &StatusError{Provider: provider, Code: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
