package http

import (
	"net"
	"net/http"
	"time"
)

const defaultClientTimeout = 30 * time.Second

// NewHTTPClient はS3互換ストレージへのアップロードに使うHTTPクライアントを返します。
// timeout はリクエスト全体の上限で、0 以下なら 30 秒です。
// 画像アップロードは同じエンドポイントに集中するため、ホストごとのアイドル接続を多めに保持します。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}
