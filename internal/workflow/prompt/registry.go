// Package prompt 管理内嵌的 Prompt 模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptGeneralTableV1 PromptID = "general_table_v1"
	PromptFilmTableV1    PromptID = "film_table_v1"
	PromptLinesV1        PromptID = "lines_v1"
)

// knownPrompts 允许从内嵌目录加载的模板
var knownPrompts = map[PromptID]struct{}{
	PromptGeneralTableV1: {},
	PromptFilmTableV1:    {},
	PromptLinesV1:        {},
}

// TemplateSource 按 ID 提供已解析模板
type TemplateSource interface {
	Template(id PromptID) (*Template, error)
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]*Template
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]*Template),
	}
}

func (r *Registry) Template(id PromptID) (*Template, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	path, err := resolvePromptFile(id)
	if err != nil {
		return nil, err
	}
	text, err := readEmbeddedText(path)
	if err != nil {
		return nil, err
	}
	tpl, err := Parse(id, text)
	if err != nil {
		return nil, err
	}
	r.cache[id] = tpl
	return tpl, nil
}

// Register 注册外部模板（测试或自定义变体使用），覆盖同名内嵌模板
func (r *Registry) Register(tpl *Template) {
	if r == nil || tpl == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[tpl.ID()] = tpl
}

func resolvePromptFile(id PromptID) (string, error) {
	if _, ok := knownPrompts[id]; !ok {
		return "", fmt.Errorf("unknown prompt id: %s", id)
	}
	return "templates/" + string(id) + ".txt", nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
