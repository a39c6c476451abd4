package utils

import (
	"net/http"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// NewHTTPClient returns a client with pooled keep-alive connections for
// calling model providers. A non-positive timeout falls back to 60s.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
