package model

import "time"

type LLMUsageMeta struct {
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	Temperature      float64   `json:"temperature,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	DurationMs       int64     `json:"duration_ms,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Add 累加两次调用的 token 用量
func (m LLMUsageMeta) Add(other LLMUsageMeta) LLMUsageMeta {
	m.PromptTokens += other.PromptTokens
	m.CompletionTokens += other.CompletionTokens
	m.DurationMs += other.DurationMs
	if other.GeneratedAt.After(m.GeneratedAt) {
		m.GeneratedAt = other.GeneratedAt
	}
	if m.Model == "" {
		m.Model = other.Model
	}
	if m.Provider == "" {
		m.Provider = other.Provider
	}
	return m
}
