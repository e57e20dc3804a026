package promptgen

import (
	"strconv"
	"strings"
)

// Markdown 渲染为可直接展示的 Markdown
// 生成成功时原样返回第二阶段输出；未配置时返回操作指引列表
func (o *Outcome) Markdown() string {
	if o == nil {
		return ""
	}
	if o.State == StateGenerated {
		return o.Lines()
	}

	var b strings.Builder
	b.WriteString("### Start Here\n\n")
	for i, g := range o.Guidance {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(g)
		b.WriteString("\n")
	}
	return b.String()
}
