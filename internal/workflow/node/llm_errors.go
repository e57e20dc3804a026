package node

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// ProviderErrorKind LLM 调用失败的粗粒度分类
type ProviderErrorKind string

const (
	ProviderErrorAuth      ProviderErrorKind = "auth"
	ProviderErrorRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrorNetwork   ProviderErrorKind = "network"
	ProviderErrorMalformed ProviderErrorKind = "malformed"
	ProviderErrorUnknown   ProviderErrorKind = "unknown"
)

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("empty llm response")

// statusCodePattern 只匹配 SDK 错误文本中的状态码字段
var statusCodePattern = regexp.MustCompile(`status code: (\d{3})\b`)

// ClassifyProviderError 判断失败原因
// 优先使用 SDK 错误类型上的 HTTP 状态码，文本只在没有类型信息时作为兜底
func ClassifyProviderError(err error) ProviderErrorKind {
	if err == nil {
		return ProviderErrorUnknown
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ProviderErrorNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ProviderErrorNetwork
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.Is(err, ErrEmptyResponse) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ProviderErrorMalformed
	}

	msg := err.Error()
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code)
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"):
		return ProviderErrorNetwork
	case strings.Contains(lower, "empty choices"):
		return ProviderErrorMalformed
	default:
		return ProviderErrorUnknown
	}
}

func classifyStatus(code int) ProviderErrorKind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ProviderErrorAuth
	case code == http.StatusTooManyRequests:
		return ProviderErrorRateLimit
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ProviderErrorNetwork
	default:
		return ProviderErrorUnknown
	}
}
