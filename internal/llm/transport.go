package llm

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"tutor-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// maxLoggedBody caps how much of a request body is written to the log.
const maxLoggedBody = 4096

var (
	sensitiveHeaders = []string{"authorization", "x-api-key", "x-goog-api-key", "api-key", "cookie"}
	sensitiveFields  = regexp.MustCompile(`"(api_key|apiKey|password|secret|token)"\s*:\s*"[^"]*"`)
)

// DebugTransport logs outgoing provider requests with credentials redacted.
type DebugTransport struct {
	base    http.RoundTripper
	enabled bool
}

func NewDebugTransport(base http.RoundTripper, enabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, enabled: enabled}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.WithFields(logrus.Fields{"url": req.URL.String()}).Errorf("provider request failed: %v", err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			fields["header."+name] = "[REDACTED]"
		} else {
			fields["header."+name] = strings.Join(values, ", ")
		}
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("failed to read request body: %v", err)
			return
		}
		// restore the body for the real request
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields["body_size"] = len(bodyBytes)
		fields["body"] = sanitizeBody(bodyBytes)
	}

	logger.WithFields(fields).Debug("provider request")
}

func sanitizeBody(body []byte) string {
	s := sensitiveFields.ReplaceAllString(string(body), `"$1": "[REDACTED]"`)
	return logger.Truncate(s, maxLoggedBody)
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
