package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/stretchr/testify/assert"
)

// wrapped 与 eino-ext 包装 SDK 错误的方式一致
func wrapped(err error) error {
	return fmt.Errorf("failed to create chat completion: %w", err)
}

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProviderErrorKind
	}{
		{"nil", nil, ProviderErrorUnknown},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ProviderErrorNetwork},
		{"canceled", context.Canceled, ProviderErrorNetwork},
		{"eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), ProviderErrorNetwork},
		{"api 401", wrapped(&openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"}), ProviderErrorAuth},
		{"api 403", wrapped(&openai.APIError{HTTPStatusCode: 403, Message: "region not supported"}), ProviderErrorAuth},
		{"api 429", wrapped(&openai.APIError{HTTPStatusCode: 429, Message: "You exceeded your current quota"}), ProviderErrorRateLimit},
		{"api 500 with digits in request id", wrapped(&openai.APIError{HTTPStatusCode: 500, Message: "server error, request id req_84291ab"}), ProviderErrorUnknown},
		{"api 400 mentioning 4010", wrapped(&openai.APIError{HTTPStatusCode: 400, Message: "max_tokens is too large: 4010"}), ProviderErrorUnknown},
		{"api 404 model name with 0403", wrapped(&openai.APIError{HTTPStatusCode: 404, Message: "model gpt-4o-2024-0403 does not exist"}), ProviderErrorUnknown},
		{"api 504", wrapped(&openai.APIError{HTTPStatusCode: 504, Message: "gateway timeout"}), ProviderErrorNetwork},
		{"request error 401", wrapped(&openai.RequestError{HTTPStatusCode: 401, Err: errors.New("unauthorized")}), ProviderErrorAuth},
		{"text status 429", errors.New("error, status code: 429, status: Too Many Requests"), ProviderErrorRateLimit},
		{"text status 500 with 429 elsewhere", errors.New("error, status code: 500, message: retry 429 times"), ProviderErrorUnknown},
		{"text 401 without status field", errors.New("request 401ab failed"), ProviderErrorUnknown},
		{"refused", errors.New("dial tcp: connection refused"), ProviderErrorNetwork},
		{"empty", fmt.Errorf("stage: %w", ErrEmptyResponse), ProviderErrorMalformed},
		{"empty choices", errors.New("received empty choices from OpenAI API response"), ProviderErrorMalformed},
		{"json", fmt.Errorf("decode: %w", &json.SyntaxError{Offset: 1}), ProviderErrorMalformed},
		{"other", errors.New("something odd"), ProviderErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyProviderError(tt.err))
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Incorrect API key provided: sk-proj-abc123XYZ, check it", "Incorrect API key provided: [REDACTED], check it"},
		{"Authorization: Bearer abc.def-123", "Authorization: [REDACTED]"},
		{"key sk-****************wxyz rejected", "key [REDACTED] rejected"},
		{"no secrets here", "no secrets here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactSecrets(tt.in))
	}
}

func TestLogPreview(t *testing.T) {
	assert.Equal(t, "a b c", LogPreview("a\n  b\tc", 10))
	assert.Equal(t, "你好…", LogPreview("你好世界", 2))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}
