package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// ErrMissingVariable 模板占位符缺少取值
var ErrMissingVariable = errors.New("missing template variable")

// MissingVariableError 记录填充时缺失的全部占位符
type MissingVariableError struct {
	Template PromptID
	Names    []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %s: missing variables: %s", e.Template, strings.Join(e.Names, ", "))
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// pyfmt 缺失键时的错误文本
var missingKeyPattern = regexp.MustCompile(`could not find key: ([A-Za-z_][A-Za-z0-9_]*)`)

// Template 不可变的 FString 模板（{name}，"{{" 与 "}}" 表示字面量花括号）
// 填充交给 Eino ChatTemplate，占位符集合用于静态校验路由表
type Template struct {
	id           PromptID
	text         string
	placeholders []string
	chat         einoprompt.ChatTemplate
}

// Parse 解析模板文本
func Parse(id PromptID, text string) (*Template, error) {
	names, err := scanPlaceholders(text)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	return &Template{
		id:           id,
		text:         text,
		placeholders: names,
		chat:         einoprompt.FromMessages(schema.FString, schema.UserMessage(text)),
	}, nil
}

// MustParse 解析失败时 panic，仅用于静态模板
func MustParse(id PromptID, text string) *Template {
	t, err := Parse(id, text)
	if err != nil {
		panic(err)
	}
	return t
}

// ID 返回模板 ID
func (t *Template) ID() PromptID { return t.id }

// Text 返回原始模板文本
func (t *Template) Text() string { return t.text }

// Placeholders 返回排序去重后的占位符名
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// Has 判断模板是否包含指定占位符
func (t *Template) Has(name string) bool {
	i := sort.SearchStrings(t.placeholders, name)
	return i < len(t.placeholders) && t.placeholders[i] == name
}

// Format 生成发送给模型的消息；vars 中多余的键被忽略
// 任一占位符缺失时返回 *MissingVariableError，且不产生部分输出
func (t *Template) Format(ctx context.Context, vars map[string]string) ([]*schema.Message, error) {
	var missing []string
	for _, name := range t.placeholders {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingVariableError{Template: t.id, Names: missing}
	}

	vs := make(map[string]any, len(vars))
	for k, v := range vars {
		vs[k] = v
	}
	msgs, err := t.chat.Format(ctx, vs)
	if err != nil {
		if m := missingKeyPattern.FindStringSubmatch(err.Error()); m != nil {
			return nil, &MissingVariableError{Template: t.id, Names: []string{m[1]}}
		}
		return nil, fmt.Errorf("format template %s: %w", t.id, err)
	}
	return msgs, nil
}

// Fill 返回填充后的文本
func (t *Template) Fill(ctx context.Context, vars map[string]string) (string, error) {
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Content)
	}
	return b.String(), nil
}

// scanPlaceholders 收集 {name} 占位符，规则与 FString 一致
// 只接受标识符形式，属性访问、下标与格式说明一律拒绝
func scanPlaceholders(text string) ([]string, error) {
	seen := make(map[string]struct{})
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := text[i+1 : i+1+end]
			if !isIdentifier(name) {
				return nil, fmt.Errorf("invalid placeholder %q at offset %d", name, i)
			}
			seen[name] = struct{}{}
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("unmatched '}' at offset %d", i)
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
