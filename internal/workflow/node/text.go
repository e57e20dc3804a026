package node

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// LogPreview 压缩空白并截断，用于 debug 日志中的 prompt 预览
func LogPreview(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return TruncateByRunes(s, maxRunes) + "…"
}

// secretPattern 匹配常见的 API Key 形态（sk-...、Bearer ...）
var secretPattern = regexp.MustCompile(`(?i)(sk-[a-z0-9_\-\*\.]{4,}|bearer\s+[a-z0-9_\-\.=]+)`)

// RedactSecrets 将文本中疑似凭据的片段替换为 [REDACTED]，用于日志输出
func RedactSecrets(s string) string {
	return secretPattern.ReplaceAllString(s, "[REDACTED]")
}
