package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldText 统一全角半角并做大小写折叠
func foldText(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// normalizeAnswer 填空题比较前的规范化：去首尾空白、折叠大小写、
// 合并连续空白、去掉结尾分号
func normalizeAnswer(s string) string {
	s = strings.Join(strings.Fields(foldText(s)), " ")
	s = strings.TrimRight(s, ";")
	return strings.TrimSpace(s)
}

var trueTokens = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"对": true, "正确": true, "是": true, "√": true, "✓": true,
}

var falseTokens = map[string]bool{
	"false": true, "f": true, "no": true, "n": true, "0": true,
	"错": true, "错误": true, "否": true, "×": true, "✗": true, "x": true,
}

// parseBool 解析判断题答案，无法识别时 ok 为 false
func parseBool(s string) (value bool, ok bool) {
	token := normalizeAnswer(s)
	token = strings.TrimRightFunc(token, unicode.IsPunct)
	switch {
	case trueTokens[token]:
		return true, true
	case falseTokens[token]:
		return false, true
	}
	return false, false
}

// splitChoices 拆分选择题答案，支持逗号（含中文逗号）、顿号与空白分隔；
// 连写的字母标签如 "AC" 也会被拆开
func splitChoices(s string) []string {
	s = norm.NFKC.String(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、' || r == ';' || r == '|' || unicode.IsSpace(r)
	})

	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isLetterRun(p) {
			for _, r := range p {
				out = append(out, string(unicode.ToUpper(r)))
			}
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	return out
}

func isLetterRun(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
