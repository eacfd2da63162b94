package binding

import (
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是模板占位符到取值的映射。
type Vars map[string]string

// Expand 将文本中的 ${name} 替换为 vars 中的值。
// 未定义的名字保留原占位符，便于在输出中发现模板错误。
func Expand(text string, vars Vars) string {
	if len(vars) == 0 {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name := strings.TrimSpace(groups[1])
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

// Keys 按出现顺序返回模板中引用的名字（去重）。
func Keys(text string) []string {
	var keys []string
	seen := map[string]bool{}
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(groups[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, name)
	}
	return keys
}

// Unknown 返回模板中引用了但不在 allowed 中的名字。
func Unknown(text string, allowed ...string) []string {
	ok := map[string]bool{}
	for _, a := range allowed {
		ok[a] = true
	}
	var out []string
	for _, k := range Keys(text) {
		if !ok[k] {
			out = append(out, k)
		}
	}
	return out
}
