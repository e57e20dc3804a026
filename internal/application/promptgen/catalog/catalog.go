// Package catalog 加载内嵌的 Prompt 变体定义（属性、行数范围、链路由表）
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wfmodel "additive-prompt-api/internal/workflow/model"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
)

//go:embed variants/*.yaml
var variantsFS embed.FS

// RowNumbersInput 行数变量名，由生成请求单独提供，不属于属性集合
const RowNumbersInput = "row_numbers"

// CustomOption 界面上的 "Custom" 选项本身不是合法取值
const CustomOption = "Custom"

// ErrInvalidCatalog 变体定义不合法
var ErrInvalidCatalog = errors.New("invalid variant catalog")

// Attribute 变体的一个可选属性
type Attribute struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	Options     []string `yaml:"options" json:"options,omitempty"`
	AllowCustom bool     `yaml:"allow_custom" json:"allow_custom"`
	// Fixed 非空时属性不可选择，始终取该值
	Fixed string `yaml:"fixed" json:"fixed,omitempty"`
}

// Default 返回默认取值：固定值或第一个预设
func (a *Attribute) Default() string {
	if a.Fixed != "" {
		return a.Fixed
	}
	if len(a.Options) == 0 {
		return ""
	}
	return a.Options[0]
}

// Preset 按大小写不敏感匹配预设，返回规范写法
func (a *Attribute) Preset(value string) (string, bool) {
	for _, opt := range a.Options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}

// RowBounds 行数范围
type RowBounds struct {
	Min     int `yaml:"min" json:"min"`
	Max     int `yaml:"max" json:"max"`
	Default int `yaml:"default" json:"default"`
}

// StageSpec YAML 中的阶段声明
type StageSpec struct {
	Name        string            `yaml:"name"`
	Prompt      string            `yaml:"prompt"`
	Output      string            `yaml:"output"`
	Temperature *float32          `yaml:"temperature"`
	MaxTokens   *int              `yaml:"max_tokens"`
	Model       string            `yaml:"model"`
	Bindings    map[string]string `yaml:"bindings"`
}

// Variant 一个 Prompt 变体
type Variant struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	HowItWorks  []string    `yaml:"how_it_works"`
	StartHere   []string    `yaml:"start_here"`
	Rows        RowBounds   `yaml:"rows"`
	Attributes  []Attribute `yaml:"attributes"`
	Stages      []StageSpec `yaml:"stages"`

	chain wfmodel.ChainDefinition
	index map[string]int
}

// Attribute 按名称查找属性
func (v *Variant) Attribute(name string) (*Attribute, bool) {
	i, ok := v.index[name]
	if !ok {
		return nil, false
	}
	return &v.Attributes[i], true
}

// Chain 返回由 stages 构建的链定义
func (v *Variant) Chain() wfmodel.ChainDefinition {
	return v.chain
}

// Parse 解析并校验单个变体定义
func Parse(data []byte) (*Variant, error) {
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := v.init(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *Variant) init() error {
	v.ID = strings.TrimSpace(v.ID)
	if v.ID == "" {
		return fmt.Errorf("%w: variant id is empty", ErrInvalidCatalog)
	}
	if len(v.Attributes) == 0 {
		return fmt.Errorf("%w: variant %s has no attributes", ErrInvalidCatalog, v.ID)
	}
	if v.Rows.Min < 1 || v.Rows.Max < v.Rows.Min || v.Rows.Default < v.Rows.Min || v.Rows.Default > v.Rows.Max {
		return fmt.Errorf("%w: variant %s has invalid rows %+v", ErrInvalidCatalog, v.ID, v.Rows)
	}

	v.index = make(map[string]int, len(v.Attributes))
	for i := range v.Attributes {
		a := &v.Attributes[i]
		if a.Name == "" || a.Name == RowNumbersInput {
			return fmt.Errorf("%w: variant %s attribute #%d has invalid name %q", ErrInvalidCatalog, v.ID, i, a.Name)
		}
		if _, dup := v.index[a.Name]; dup {
			return fmt.Errorf("%w: variant %s has duplicate attribute %q", ErrInvalidCatalog, v.ID, a.Name)
		}
		if a.Fixed == "" && len(a.Options) == 0 {
			return fmt.Errorf("%w: variant %s attribute %q has no options", ErrInvalidCatalog, v.ID, a.Name)
		}
		for _, opt := range a.Options {
			if strings.TrimSpace(opt) == "" || opt == CustomOption {
				return fmt.Errorf("%w: variant %s attribute %q has invalid option %q", ErrInvalidCatalog, v.ID, a.Name, opt)
			}
		}
		if a.Label == "" {
			a.Label = a.Name
		}
		v.index[a.Name] = i
	}

	def, err := v.buildChain()
	if err != nil {
		return err
	}
	v.chain = def
	return nil
}

func (v *Variant) buildChain() (wfmodel.ChainDefinition, error) {
	def := wfmodel.ChainDefinition{Name: v.ID}
	if len(v.Stages) == 0 {
		return def, fmt.Errorf("%w: variant %s has no stages", ErrInvalidCatalog, v.ID)
	}

	for _, s := range v.Stages {
		st := wfmodel.StageDefinition{
			Name:   s.Name,
			Prompt: workflowprompt.PromptID(s.Prompt),
			Output: s.Output,
			Settings: wfmodel.StageSettings{
				Temperature: s.Temperature,
				MaxTokens:   s.MaxTokens,
				Model:       s.Model,
			},
		}

		// map 无序，按占位符名排序保证定义稳定
		placeholders := make([]string, 0, len(s.Bindings))
		for ph := range s.Bindings {
			placeholders = append(placeholders, ph)
		}
		sort.Strings(placeholders)

		for _, ph := range placeholders {
			src, err := wfmodel.ParseSource(s.Bindings[ph])
			if err != nil {
				return def, fmt.Errorf("%w: variant %s stage %s: %v", ErrInvalidCatalog, v.ID, s.Name, err)
			}
			if src.Kind == wfmodel.SourceInput && src.Key != RowNumbersInput {
				if _, ok := v.index[src.Key]; !ok {
					return def, fmt.Errorf("%w: variant %s stage %s binds unknown attribute %q", ErrInvalidCatalog, v.ID, s.Name, src.Key)
				}
			}
			st.Bindings = append(st.Bindings, wfmodel.Binding{Placeholder: ph, From: src})
		}
		def.Stages = append(def.Stages, st)
	}
	return def, nil
}

// Catalog 全部变体，按 ID 排序
type Catalog struct {
	variants map[string]*Variant
	order    []string
}

// New 由已解析的变体构建目录
func New(variants ...*Variant) (*Catalog, error) {
	c := &Catalog{variants: make(map[string]*Variant, len(variants))}
	for _, v := range variants {
		if v == nil {
			continue
		}
		if _, dup := c.variants[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate variant %q", ErrInvalidCatalog, v.ID)
		}
		c.variants[v.ID] = v
		c.order = append(c.order, v.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Load 加载内嵌的全部变体
func Load() (*Catalog, error) {
	entries, err := fs.ReadDir(variantsFS, "variants")
	if err != nil {
		return nil, err
	}

	variants := make([]*Variant, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := variantsFS.ReadFile("variants/" + e.Name())
		if err != nil {
			return nil, err
		}
		v, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		variants = append(variants, v)
	}
	return New(variants...)
}

// MustLoad 加载失败时 panic，内嵌定义只会因代码错误而失败
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Get 按 ID 查找变体
func (c *Catalog) Get(id string) (*Variant, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.variants[strings.ToLower(strings.TrimSpace(id))]
	return v, ok
}

// List 返回按 ID 排序的全部变体
func (c *Catalog) List() []*Variant {
	if c == nil {
		return nil
	}
	out := make([]*Variant, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.variants[id])
	}
	return out
}
