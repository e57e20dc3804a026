package promptgen

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"additive-prompt-api/internal/application/promptgen/catalog"
)

var (
	// ErrVariantNotFound 变体不存在
	ErrVariantNotFound = errors.New("variant not found")
	// ErrInvalidSelection 属性取值不合法
	ErrInvalidSelection = errors.New("invalid attribute selection")
	// ErrInvalidRowCount 行数超出范围
	ErrInvalidRowCount = errors.New("invalid row count")
)

// SelectionError 描述不合法的属性取值
type SelectionError struct {
	Attribute string
	Value     string
	Reason    string
}

func (e *SelectionError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("invalid selection: %s", e.Reason)
	}
	return fmt.Sprintf("invalid value %q for attribute %s: %s", e.Value, e.Attribute, e.Reason)
}

func (e *SelectionError) Is(target error) bool { return target == ErrInvalidSelection }

// Selection 属性名 -> 取值，覆盖变体的全部属性且取值非空
type Selection map[string]string

// Variables 转换为链输入变量，附加行数
func (s Selection) Variables(rows int) map[string]string {
	out := make(map[string]string, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[catalog.RowNumbersInput] = strconv.Itoa(rows)
	return out
}

// ResolveSelection 用请求值补全属性：
// 空值取默认预设；预设匹配不区分大小写；非预设值要求属性允许自定义；"Custom" 本身不合法
func ResolveSelection(v *catalog.Variant, requested map[string]string) (Selection, error) {
	if v == nil {
		return nil, ErrVariantNotFound
	}

	var unknown []string
	for name := range requested {
		if _, ok := v.Attribute(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &SelectionError{Reason: "unknown attributes: " + strings.Join(unknown, ", ")}
	}

	sel := make(Selection, len(v.Attributes))
	for i := range v.Attributes {
		a := &v.Attributes[i]
		value := strings.TrimSpace(requested[a.Name])

		switch {
		case a.Fixed != "":
			if value != "" && !strings.EqualFold(value, a.Fixed) {
				return nil, &SelectionError{Attribute: a.Name, Value: value, Reason: "attribute is fixed to " + strconv.Quote(a.Fixed)}
			}
			sel[a.Name] = a.Fixed
		case value == "":
			sel[a.Name] = a.Default()
		case strings.EqualFold(value, catalog.CustomOption):
			return nil, &SelectionError{Attribute: a.Name, Value: value, Reason: "custom option requires a custom value"}
		default:
			if preset, ok := a.Preset(value); ok {
				sel[a.Name] = preset
				continue
			}
			if !a.AllowCustom {
				return nil, &SelectionError{Attribute: a.Name, Value: value, Reason: "value is not one of the presets"}
			}
			sel[a.Name] = value
		}
	}
	return sel, nil
}

// ResolveRowCount nil 时取默认值；超出 [Min, Max] 返回 ErrInvalidRowCount
func ResolveRowCount(v *catalog.Variant, rows *int) (int, error) {
	if v == nil {
		return 0, ErrVariantNotFound
	}
	if rows == nil {
		return v.Rows.Default, nil
	}
	n := *rows
	if n < v.Rows.Min || n > v.Rows.Max {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidRowCount, n, v.Rows.Min, v.Rows.Max)
	}
	return n, nil
}
