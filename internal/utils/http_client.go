package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient 外部调用共用的 HTTP 客户端；insecure 仅用于内网自签证书的网关
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(insecure),
	}
}

func NewTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}
