package pdf

import (
	"strings"
	"unicode"
)

// Filename 根据简历姓名生成下载文件名，只保留 [A-Za-z0-9_-]，空白替换为下划线。
func Filename(name string) string {
	base := SanitizeName(name)
	if base == "" {
		return "Resume.pdf"
	}
	return base + "_Resume.pdf"
}

// SanitizeName 清理姓名中的不安全字符，并合并连续的下划线。
func SanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 80 {
		out = strings.TrimRight(out[:80], "_")
	}
	return out
}
