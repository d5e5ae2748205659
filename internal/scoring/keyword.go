package scoring

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "is": true, "are": true, "be": true, "for": true,
	"on": true, "with": true, "as": true, "by": true, "it": true,
}

// KeywordGrader scores free text by the share of reference keywords that
// appear in the submission. It needs no network and is used when no LLM
// provider is configured.
type KeywordGrader struct{}

func NewKeywordGrader() *KeywordGrader {
	return &KeywordGrader{}
}

func (g *KeywordGrader) Evaluate(ctx context.Context, questionText, canonicalAnswer, submittedAnswer string) (Grade, error) {
	if err := ctx.Err(); err != nil {
		return Grade{}, err
	}

	want := keywords(canonicalAnswer)
	if len(want) == 0 {
		return Grade{}, errors.New("reference answer has no keywords")
	}
	have := keywords(submittedAnswer)

	var missing []string
	matched := 0
	for _, k := range slices.Sorted(maps.Keys(want)) {
		if have[k] {
			matched++
		} else {
			missing = append(missing, k)
		}
	}

	score := float64(matched) / float64(len(want))
	explanation := fmt.Sprintf("关键词匹配 %d/%d。", matched, len(want))
	if len(missing) > 0 {
		if len(missing) > 5 {
			missing = missing[:5]
		}
		explanation += "未覆盖要点：" + strings.Join(missing, "、") + "。"
	}
	return Grade{Score: score, Explanation: explanation}, nil
}

// keywords 英文按单词切分，中文连续字符按二元组切分
func keywords(s string) map[string]bool {
	out := make(map[string]bool)
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) > 1 {
			w := foldText(string(word))
			if !stopWords[w] {
				out[w] = true
			}
		}
		word = word[:0]
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			out[string(han)] = true
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				out[string(han[i:i+2])] = true
			}
		}
		han = han[:0]
	}

	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()
	return out
}
