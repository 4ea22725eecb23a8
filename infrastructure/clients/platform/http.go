package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"social-publisher/domain/model"
)

const maxErrorBody = 64 * 1024

// api is the shared JSON over HTTP plumbing used by every platform client.
type api struct {
	platform model.Platform
	client   *http.Client
	baseURL  string
}

type request struct {
	method      string
	path        string
	token       string
	contentType string
	body        io.Reader
	header      map[string]string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do sends req and decodes a 2xx body into out. Every failure is returned as
// a *model.PublishError classified by status or transport error.
func (a api) do(ctx context.Context, req request, out any) (http.Header, error) {
	url := req.path
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = a.baseURL + req.path
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, url, req.body)
	if err != nil {
		return nil, &model.PublishError{Platform: a.platform, Code: model.CodeUnknown, Message: err.Error()}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.body != nil {
		ct := req.contentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, a.platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, classifyStatus(a.platform, resp.StatusCode, extractMessage(body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.Header, &model.PublishError{Platform: a.platform, Code: model.CodeUnknown, Message: "decode response: " + err.Error()}
		}
	}
	return resp.Header, nil
}

// classifyStatus maps a non-2xx HTTP status to a publish error code.
func classifyStatus(p model.Platform, status int, message string) *model.PublishError {
	e := &model.PublishError{Platform: p, StatusCode: status, Message: message}
	switch {
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = model.CodeRateLimited, true
	case status == http.StatusRequestTimeout:
		e.Code, e.Retryable = model.CodeTimeout, true
	case status >= 500:
		e.Code, e.Retryable = model.CodePlatformUnavailable, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = model.CodeTokenRejected
	case status >= 400:
		e.Code = model.CodeInvalidContent
	default:
		e.Code = model.CodeUnknown
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func classifyTransport(ctx context.Context, p model.Platform, err error) *model.PublishError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &model.PublishError{Platform: p, Code: model.CodeTimeout, Message: "request timed out", Retryable: true}
	}
	return &model.PublishError{Platform: p, Code: model.CodeNetworkError, Message: err.Error(), Retryable: true}
}

// extractMessage pulls a human readable message out of the error shapes the
// platforms use. The raw body is never returned.
func extractMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if e, ok := m["error"].(map[string]any); ok {
		if s, ok := e["message"].(string); ok {
			return truncate(s)
		}
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		if e, ok := errs[0].(map[string]any); ok {
			if s, ok := e["message"].(string); ok {
				return truncate(s)
			}
		}
	}
	for _, key := range []string{"message", "error_description", "error", "detail", "title"} {
		if s, ok := m[key].(string); ok && s != "" {
			return truncate(s)
		}
	}
	return ""
}

func truncate(s string) string {
	const limit = 300
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func profileError(p model.Platform, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrProfileFetchFailed, p, err)
}

func notImplemented(p model.Platform) error {
	return &model.PublishError{
		Platform: p,
		Code:     model.CodePublishNotImplemented,
		Message:  fmt.Sprintf("publishing to %s is not implemented", p),
	}
}

// withMediaLinks appends media URLs for platforms that only take text.
func withMediaLinks(content string, media []model.PreparedMedia) string {
	if len(media) == 0 {
		return content
	}
	var b strings.Builder
	b.WriteString(content)
	for _, m := range media {
		b.WriteString("\n")
		b.WriteString(m.URL)
	}
	return b.String()
}
